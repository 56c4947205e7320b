package models

import (
	"fmt"
	"time"
)

// Category represents the kind of weather outcome a bet predicts
type Category string

const (
	CategoryRainYes     Category = "rain_yes"
	CategoryRainNo      Category = "rain_no"
	CategoryRainAmount  Category = "rain_amount"
	CategoryTempMin     Category = "temp_min"
	CategoryTempMax     Category = "temp_max"
	CategoryTemperature Category = "temperature"
	CategoryWindMax     Category = "wind_max"
)

// AllCategories lists every supported category in display order
var AllCategories = []Category{
	CategoryRainYes,
	CategoryRainNo,
	CategoryRainAmount,
	CategoryTempMin,
	CategoryTempMax,
	CategoryTemperature,
	CategoryWindMax,
}

// CategoryGroup buckets categories that share a rate-limit counter and verification window
type CategoryGroup string

const (
	GroupRain        CategoryGroup = "rain"
	GroupTemperature CategoryGroup = "temperature"
	GroupWind        CategoryGroup = "wind"
)

// AllGroups lists every category group
var AllGroups = []CategoryGroup{GroupRain, GroupTemperature, GroupWind}

// ParseCategory validates a raw category string
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return c, nil
}

// Valid reports whether the category is one of the supported values
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Group returns the category group. Unknown categories return an empty group.
func (c Category) Group() CategoryGroup {
	switch c {
	case CategoryRainYes, CategoryRainNo, CategoryRainAmount:
		return GroupRain
	case CategoryTempMin, CategoryTempMax, CategoryTemperature:
		return GroupTemperature
	case CategoryWindMax:
		return GroupWind
	}
	return ""
}

// RequiresValue reports whether the category needs a numeric prediction
func (c Category) RequiresValue() bool {
	return c != CategoryRainYes && c != CategoryRainNo
}

// VerificationWindow returns how long after placement a bet becomes resolvable
func (c Category) VerificationWindow() time.Duration {
	if c.Group() == GroupRain {
		return 24 * time.Hour
	}
	return 12 * time.Hour
}

// Unit returns the display unit of the predicted value
func (c Category) Unit() string {
	switch c.Group() {
	case GroupRain:
		return "mm"
	case GroupTemperature:
		return "°C"
	case GroupWind:
		return "km/h"
	}
	return ""
}

// Label returns a human readable category name
func (c Category) Label() string {
	switch c {
	case CategoryRainYes:
		return "Rain"
	case CategoryRainNo:
		return "No rain"
	case CategoryRainAmount:
		return "Rain amount"
	case CategoryTempMin:
		return "Minimum temperature"
	case CategoryTempMax:
		return "Maximum temperature"
	case CategoryTemperature:
		return "Temperature"
	case CategoryWindMax:
		return "Maximum wind"
	}
	return string(c)
}

// Mode represents the betting mode
type Mode string

const (
	ModeSimple Mode = "simple"
	ModePro    Mode = "pro"
)

// Valid reports whether the mode is supported
func (m Mode) Valid() bool {
	return m == ModeSimple || m == ModePro
}

// Status represents the settlement state of a bet
type Status string

const (
	StatusPending Status = "pending"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusError   Status = "error"
)

// IsTerminal reports whether the status can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusWon || s == StatusLost || s == StatusError
}
