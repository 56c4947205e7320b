package odds

import (
	"math"

	"weatherbet/models"
)

const (
	heavyRainMM   = 10.0
	strongWindKMH = 50.0
)

var rainYesFactors = map[Season]float64{Summer: 1.8, Autumn: 1.0, Winter: 0.7, Spring: 0.9}
var rainNoFactors = map[Season]float64{Summer: 0.8, Autumn: 1.0, Winter: 1.2, Spring: 1.0}

// lightRain applies up to heavyRainMM, heavyRain above it
var lightRainFactors = map[Season]float64{Summer: 1.5, Autumn: 1.0, Winter: 0.8, Spring: 1.0}
var heavyRainFactors = map[Season]float64{Summer: 1.8, Autumn: 1.0, Winter: 0.7, Spring: 1.0}

var strongWindFactors = map[Season]float64{Summer: 1.3, Autumn: 0.9, Winter: 0.8, Spring: 1.0}

// ApplySeasonalAdjustment scales a base multiplier by the season and threshold
// dependent factor for the category. It must only be given base table values.
// Factors below 1 can push a multiplier under 1; the result is not floored.
func ApplySeasonalAdjustment(base float64, category models.Category, value *float64, season Season) float64 {
	return round(base * seasonalFactor(category, value, season))
}

func seasonalFactor(category models.Category, value *float64, season Season) float64 {
	v := 0.0
	if value != nil {
		v = *value
	}

	switch category.Group() {
	case models.GroupRain:
		switch category {
		case models.CategoryRainYes:
			return factorOr(rainYesFactors, season)
		case models.CategoryRainNo:
			return factorOr(rainNoFactors, season)
		}
		if v > heavyRainMM {
			return factorOr(heavyRainFactors, season)
		}
		return factorOr(lightRainFactors, season)

	case models.GroupWind:
		if v >= strongWindKMH {
			return factorOr(strongWindFactors, season)
		}
		return 1.0

	case models.GroupTemperature:
		return temperatureFactor(v, season)
	}
	return 1.0
}

func temperatureFactor(celsius float64, season Season) float64 {
	switch season {
	case Summer:
		if celsius >= 35 {
			return 0.8
		}
		if celsius <= 10 {
			return 1.5
		}
	case Winter:
		if celsius <= 0 {
			return 0.8
		}
		if celsius >= 20 {
			return 1.5
		}
	default:
		if celsius >= 28 || celsius <= 0 {
			return 1.2
		}
	}
	return 1.0
}

func factorOr(factors map[Season]float64, season Season) float64 {
	if f, ok := factors[season]; ok {
		return f
	}
	return 1.0
}

// round keeps multipliers at two decimals so stored odds match what is quoted
func round(v float64) float64 {
	return math.Round(v*100) / 100
}
