package service

import (
	"context"
	"fmt"
	"math"

	"weatherbet/models"
)

// sweepReadings fetches each observation at most once per sweep. Only
// successful readings are cached; a failed reading is retried for the next bet.
type sweepReadings struct {
	provider    ObservationProvider
	rain        *float64
	temperature *models.TemperatureReading
	wind        *models.WindReading
}

func newSweepReadings(provider ObservationProvider) *sweepReadings {
	return &sweepReadings{provider: provider}
}

// value returns the single observation a reading needs
func (r *sweepReadings) value(ctx context.Context, reading models.Reading) (v float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &DataFetchError{Reading: reading, Err: fmt.Errorf("provider panic: %v", p)}
		}
	}()

	switch reading {
	case models.ReadingRain:
		if r.rain == nil {
			mm, err := r.provider.FetchCurrentRain(ctx)
			if err != nil {
				return 0, &DataFetchError{Reading: reading, Err: err}
			}
			if !finite(mm) || mm < 0 {
				return 0, &DataFetchError{Reading: reading, Err: fmt.Errorf("malformed rain amount %v", mm)}
			}
			r.rain = &mm
		}
		return *r.rain, nil

	case models.ReadingTemperatureCurrent, models.ReadingTemperatureMin, models.ReadingTemperatureMax:
		if r.temperature == nil {
			t, err := r.provider.FetchCurrentTemperature(ctx)
			if err != nil {
				return 0, &DataFetchError{Reading: reading, Err: err}
			}
			if !finite(t.Current) || !finite(t.Min) || !finite(t.Max) {
				return 0, &DataFetchError{Reading: reading, Err: fmt.Errorf("malformed temperature reading %+v", t)}
			}
			r.temperature = &t
		}
		switch reading {
		case models.ReadingTemperatureMin:
			return r.temperature.Min, nil
		case models.ReadingTemperatureMax:
			return r.temperature.Max, nil
		default:
			return r.temperature.Current, nil
		}

	case models.ReadingWindMax:
		if r.wind == nil {
			w, err := r.provider.FetchCurrentWind(ctx)
			if err != nil {
				return 0, &DataFetchError{Reading: reading, Err: err}
			}
			if !finite(w.Max) || w.Max < 0 {
				return 0, &DataFetchError{Reading: reading, Err: fmt.Errorf("malformed wind reading %v", w.Max)}
			}
			r.wind = &w
		}
		return r.wind.Max, nil
	}

	return 0, &DataFetchError{Reading: reading, Err: fmt.Errorf("unsupported reading")}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
