package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"weatherbet/models"
)

// MockObservationProvider is a mock implementation of ObservationProvider
type MockObservationProvider struct {
	mock.Mock
}

func (m *MockObservationProvider) FetchCurrentRain(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockObservationProvider) FetchCurrentTemperature(ctx context.Context) (models.TemperatureReading, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.TemperatureReading), args.Error(1)
}

func (m *MockObservationProvider) FetchCurrentWind(ctx context.Context) (models.WindReading, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.WindReading), args.Error(1)
}

// MockOddsCalculator is a mock implementation of OddsCalculator
type MockOddsCalculator struct {
	mock.Mock
}

func (m *MockOddsCalculator) OddsFor(category models.Category, value *float64) (float64, error) {
	args := m.Called(category, value)
	return args.Get(0).(float64), args.Error(1)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) BetPlaced(category models.Category) {
	m.Called(category)
}

func (m *MockMetricsRecorder) BetRejected(reason ValidationReason) {
	m.Called(reason)
}

func (m *MockMetricsRecorder) BetSettled(status models.Status) {
	m.Called(status)
}

func (m *MockMetricsRecorder) ObservationFailed(reading models.Reading) {
	m.Called(reading)
}

func (m *MockMetricsRecorder) SweepCompleted(duration time.Duration) {
	m.Called(duration)
}
