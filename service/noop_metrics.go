package service

import (
	"time"

	"weatherbet/models"
)

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) BetPlaced(models.Category)        {}
func (NoopMetrics) BetRejected(ValidationReason)     {}
func (NoopMetrics) BetSettled(models.Status)         {}
func (NoopMetrics) ObservationFailed(models.Reading) {}
func (NoopMetrics) SweepCompleted(time.Duration)     {}
