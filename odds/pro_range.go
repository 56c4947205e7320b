package odds

import (
	"math"

	"weatherbet/models"
)

// proMargins is ordered from the highest odds down; the first entry whose
// threshold the odds reach gives the allowed deviation
var proMargins = []struct {
	minOdds float64
	margin  float64
}{
	{100, 0},
	{50, 1},
	{20, 2},
	{10, 3},
	{5, 4},
}

const defaultProMargin = 5.0

type valueDomain struct {
	floor   float64
	ceiling float64
}

var domains = map[models.CategoryGroup]valueDomain{
	models.GroupRain:        {floor: 0, ceiling: 500},
	models.GroupTemperature: {floor: -60, ceiling: 60},
	models.GroupWind:        {floor: 0, ceiling: 400},
}

// ProMargin returns the Pro mode deviation allowed for a multiplier
func ProMargin(multiplier float64) float64 {
	for _, m := range proMargins {
		if multiplier >= m.minOdds {
			return m.margin
		}
	}
	return defaultProMargin
}

// ProRange derives the Pro mode range around a prediction, clamped to the
// category's physical domain. Categories without a value have no range.
func ProRange(category models.Category, predicted *float64, multiplier float64) *models.Range {
	if predicted == nil || !category.RequiresValue() {
		return nil
	}
	margin := ProMargin(multiplier)
	d, ok := domains[category.Group()]
	if !ok {
		return nil
	}
	return &models.Range{
		Min: clamp(*predicted-margin, d.floor, d.ceiling),
		Max: clamp(*predicted+margin, d.floor, d.ceiling),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
