package models

import (
	"errors"
	"fmt"
	"math"
)

// Settlement margins per category group
const (
	RainAmountMarginMM    = 0.5
	TemperatureMarginC    = 1.0
	WindMarginKMH         = 3.0
	marginComparisonSlack = 1e-9
)

// Reading identifies the single observation a prediction is settled against
type Reading string

const (
	ReadingRain               Reading = "rain"
	ReadingTemperatureCurrent Reading = "temperature_current"
	ReadingTemperatureMin     Reading = "temperature_min"
	ReadingTemperatureMax     Reading = "temperature_max"
	ReadingWindMax            Reading = "wind_max"
)

// Rule identifies how an outcome was decided
type Rule string

const (
	RuleOccurrence Rule = "occurrence"
	RuleMargin     Rule = "margin"
	RuleRange      Rule = "range"
)

// Range is an inclusive Pro mode value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the inclusive range
func (r Range) Contains(v float64) bool {
	return v >= r.Min-marginComparisonSlack && v <= r.Max+marginComparisonSlack
}

// Outcome is the result of applying a prediction's rule to an observed value
type Outcome struct {
	Category   Category
	Predicted  *float64
	Observed   float64
	Won        bool
	Rule       Rule
	Margin     float64
	Difference float64
	Range      *Range
}

// Prediction is the closed set of typed predictions. Each variant carries its
// value, its margin and the reading it settles against.
type Prediction interface {
	Category() Category
	Value() *float64
	Reading() Reading
	Margin() float64
	Settle(observed float64, proRange *Range) Outcome
	isPrediction()
}

// ErrMissingPredictedValue is returned when a value category has no prediction
var ErrMissingPredictedValue = errors.New("predicted value is required for this category")

// NewPrediction builds the typed prediction for a category
func NewPrediction(category Category, value *float64) (Prediction, error) {
	if category.RequiresValue() {
		if value == nil {
			return nil, ErrMissingPredictedValue
		}
		if math.IsNaN(*value) || math.IsInf(*value, 0) {
			return nil, fmt.Errorf("predicted value must be a finite number")
		}
	}

	switch category {
	case CategoryRainYes:
		return RainYes{}, nil
	case CategoryRainNo:
		return RainNo{}, nil
	case CategoryRainAmount:
		if *value < 0 {
			return nil, fmt.Errorf("rain amount cannot be negative")
		}
		return RainAmount{MM: *value}, nil
	case CategoryTempMin:
		return TempMin{Celsius: *value}, nil
	case CategoryTempMax:
		return TempMax{Celsius: *value}, nil
	case CategoryTemperature:
		return Temperature{Celsius: *value}, nil
	case CategoryWindMax:
		if *value < 0 {
			return nil, fmt.Errorf("wind speed cannot be negative")
		}
		return WindMax{KMH: *value}, nil
	}
	return nil, fmt.Errorf("unknown category %q", category)
}

// RainYes wins when any rain is observed
type RainYes struct{}

func (RainYes) Category() Category { return CategoryRainYes }
func (RainYes) Value() *float64 { return nil }
func (RainYes) Reading() Reading { return ReadingRain }
func (RainYes) Margin() float64 { return 0 }
func (RainYes) isPrediction() {}

func (p RainYes) Settle(observed float64, _ *Range) Outcome {
	return Outcome{Category: p.Category(), Observed: observed, Won: observed > 0, Rule: RuleOccurrence}
}

// RainNo wins when no rain is observed
type RainNo struct{}

func (RainNo) Category() Category { return CategoryRainNo }
func (RainNo) Value() *float64 { return nil }
func (RainNo) Reading() Reading { return ReadingRain }
func (RainNo) Margin() float64 { return 0 }
func (RainNo) isPrediction() {}

func (p RainNo) Settle(observed float64, _ *Range) Outcome {
	return Outcome{Category: p.Category(), Observed: observed, Won: observed == 0, Rule: RuleOccurrence}
}

// RainAmount predicts the accumulated rain in millimetres
type RainAmount struct{ MM float64 }

func (RainAmount) Category() Category { return CategoryRainAmount }
func (p RainAmount) Value() *float64 { return floatPtr(p.MM) }
func (RainAmount) Reading() Reading { return ReadingRain }
func (RainAmount) Margin() float64 { return RainAmountMarginMM }
func (RainAmount) isPrediction() {}

func (p RainAmount) Settle(observed float64, proRange *Range) Outcome {
	return settleNumeric(p, p.MM, observed, proRange)
}

// TempMin predicts the observed daily minimum temperature
type TempMin struct{ Celsius float64 }

func (TempMin) Category() Category { return CategoryTempMin }
func (p TempMin) Value() *float64 { return floatPtr(p.Celsius) }
func (TempMin) Reading() Reading { return ReadingTemperatureMin }
func (TempMin) Margin() float64 { return TemperatureMarginC }
func (TempMin) isPrediction() {}

func (p TempMin) Settle(observed float64, proRange *Range) Outcome {
	return settleNumeric(p, p.Celsius, observed, proRange)
}

// TempMax predicts the observed daily maximum temperature
type TempMax struct{ Celsius float64 }

func (TempMax) Category() Category { return CategoryTempMax }
func (p TempMax) Value() *float64 { return floatPtr(p.Celsius) }
func (TempMax) Reading() Reading { return ReadingTemperatureMax }
func (TempMax) Margin() float64 { return TemperatureMarginC }
func (TempMax) isPrediction() {}

func (p TempMax) Settle(observed float64, proRange *Range) Outcome {
	return settleNumeric(p, p.Celsius, observed, proRange)
}

// Temperature predicts the current temperature at verification time
type Temperature struct{ Celsius float64 }

func (Temperature) Category() Category { return CategoryTemperature }
func (p Temperature) Value() *float64 { return floatPtr(p.Celsius) }
func (Temperature) Reading() Reading { return ReadingTemperatureCurrent }
func (Temperature) Margin() float64 { return TemperatureMarginC }
func (Temperature) isPrediction() {}

func (p Temperature) Settle(observed float64, proRange *Range) Outcome {
	return settleNumeric(p, p.Celsius, observed, proRange)
}

// WindMax predicts the maximum wind speed in km/h
type WindMax struct{ KMH float64 }

func (WindMax) Category() Category { return CategoryWindMax }
func (p WindMax) Value() *float64 { return floatPtr(p.KMH) }
func (WindMax) Reading() Reading { return ReadingWindMax }
func (WindMax) Margin() float64 { return WindMarginKMH }
func (WindMax) isPrediction() {}

func (p WindMax) Settle(observed float64, proRange *Range) Outcome {
	return settleNumeric(p, p.KMH, observed, proRange)
}

// settleNumeric applies the Pro range when present, otherwise the fixed margin
func settleNumeric(p Prediction, predicted, observed float64, proRange *Range) Outcome {
	diff := math.Abs(predicted - observed)
	out := Outcome{
		Category:   p.Category(),
		Predicted:  floatPtr(predicted),
		Observed:   observed,
		Margin:     p.Margin(),
		Difference: diff,
	}
	if proRange != nil {
		r := *proRange
		out.Rule = RuleRange
		out.Range = &r
		out.Won = r.Contains(observed)
		return out
	}
	out.Rule = RuleMargin
	out.Won = diff <= p.Margin()+marginComparisonSlack
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}
