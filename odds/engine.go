package odds

import (
	"fmt"
	"time"

	"weatherbet/models"
)

// Compute returns the placement multiplier for a category, value and season.
// The base table lookup always happens before the seasonal adjustment.
func Compute(category models.Category, value *float64, season Season) (float64, error) {
	base, err := baseOdds(category, value, season)
	if err != nil {
		return 0, err
	}
	return ApplySeasonalAdjustment(base, category, value, season), nil
}

func baseOdds(category models.Category, value *float64, season Season) (float64, error) {
	if category.RequiresValue() && value == nil {
		return 0, models.ErrMissingPredictedValue
	}

	switch category.Group() {
	case models.GroupRain:
		switch category {
		case models.CategoryRainYes:
			return BaseRainYesOdds(), nil
		case models.CategoryRainNo:
			return BaseRainNoOdds(), nil
		}
		return BaseRainOdds(*value), nil
	case models.GroupTemperature:
		return BaseTemperatureOdds(*value, season), nil
	case models.GroupWind:
		return BaseWindOdds(*value), nil
	}
	return 0, fmt.Errorf("unknown category %q", category)
}

// Engine evaluates odds against the wall clock
type Engine struct {
	now func() time.Time
}

// NewEngine creates an odds engine. A nil clock falls back to time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// CurrentSeason is re-evaluated on every call
func (e *Engine) CurrentSeason() Season {
	return SeasonFor(e.now())
}

// OddsFor returns the adjusted multiplier for the current season
func (e *Engine) OddsFor(category models.Category, value *float64) (float64, error) {
	return Compute(category, value, e.CurrentSeason())
}

// RainYesOdds returns the adjusted "it will rain" multiplier
func (e *Engine) RainYesOdds() float64 {
	return ApplySeasonalAdjustment(BaseRainYesOdds(), models.CategoryRainYes, nil, e.CurrentSeason())
}

// RainNoOdds returns the adjusted "it won't rain" multiplier
func (e *Engine) RainNoOdds() float64 {
	return ApplySeasonalAdjustment(BaseRainNoOdds(), models.CategoryRainNo, nil, e.CurrentSeason())
}

// RainOdds returns the adjusted multiplier for a rain amount
func (e *Engine) RainOdds(mm float64) float64 {
	return ApplySeasonalAdjustment(BaseRainOdds(mm), models.CategoryRainAmount, &mm, e.CurrentSeason())
}

// TemperatureOdds returns the adjusted multiplier for a temperature prediction
func (e *Engine) TemperatureOdds(celsius float64) float64 {
	season := e.CurrentSeason()
	return ApplySeasonalAdjustment(BaseTemperatureOdds(celsius, season), models.CategoryTemperature, &celsius, season)
}

// WindOdds returns the adjusted multiplier for a maximum wind prediction
func (e *Engine) WindOdds(kmh float64) float64 {
	return ApplySeasonalAdjustment(BaseWindOdds(kmh), models.CategoryWindMax, &kmh, e.CurrentSeason())
}
