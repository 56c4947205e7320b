package odds

import "math"

// step maps every value up to and including upTo onto a multiplier
type step struct {
	upTo float64
	odds float64
}

const (
	rainYesBase = 4.0
	rainNoBase  = 1.15
)

var rainSteps = []step{
	{0, 1.15},
	{1, 3.5},
	{3, 5.0},
	{5, 8.0},
	{10, 15.0},
	{15, 25.0},
	{20, 40.0},
	{30, 60.0},
	{40, 100.0},
	{50, 150.0},
	{75, 250.0},
	{100, 500.0},
}

const rainBeyondTable = 1000.0

var windSteps = []step{
	{5, 2.5},
	{15, 3.0},
	{25, 4.0},
	{35, 6.0},
	{45, 10.0},
	{55, 20.0},
	{70, 50.0},
	{90, 100.0},
}

const windBeyondTable = 250.0

// temperatureTable is a season's typical band plus steps keyed on the distance
// from that band
type temperatureTable struct {
	bandLow  float64
	bandHigh float64
	inBand   float64
	steps    []step
	beyond   float64
}

var temperatureTables = map[Season]temperatureTable{
	Summer: {
		bandLow: 18, bandHigh: 30, inBand: 2.0,
		steps:  []step{{3, 3.0}, {6, 5.0}, {10, 10.0}, {15, 25.0}},
		beyond: 50.0,
	},
	Autumn: {
		bandLow: 8, bandHigh: 20, inBand: 2.2,
		steps:  []step{{3, 3.5}, {6, 6.0}, {10, 12.0}, {15, 30.0}},
		beyond: 60.0,
	},
	Winter: {
		bandLow: 0, bandHigh: 12, inBand: 2.5,
		steps:  []step{{2, 3.5}, {5, 6.0}, {8, 12.0}, {12, 25.0}},
		beyond: 60.0,
	},
	Spring: {
		bandLow: 8, bandHigh: 22, inBand: 2.0,
		steps:  []step{{3, 3.0}, {6, 5.5}, {10, 11.0}, {15, 28.0}},
		beyond: 55.0,
	},
}

func lookup(steps []step, v, beyond float64) float64 {
	for _, s := range steps {
		if v <= s.upTo {
			return s.odds
		}
	}
	return beyond
}

// BaseRainOdds returns the unadjusted multiplier for a rain amount prediction
func BaseRainOdds(mm float64) float64 {
	if mm <= 0 {
		return rainSteps[0].odds
	}
	return lookup(rainSteps[1:], mm, rainBeyondTable)
}

// BaseRainYesOdds returns the unadjusted "it will rain" multiplier
func BaseRainYesOdds() float64 { return rainYesBase }

// BaseRainNoOdds returns the unadjusted "it won't rain" multiplier
func BaseRainNoOdds() float64 { return rainNoBase }

// BaseWindOdds returns the unadjusted multiplier for a maximum wind prediction
func BaseWindOdds(kmh float64) float64 {
	return lookup(windSteps, math.Max(kmh, 0), windBeyondTable)
}

// BaseTemperatureOdds returns the unadjusted multiplier for a temperature
// prediction. Odds grow with the distance from the season's typical band.
func BaseTemperatureOdds(celsius float64, season Season) float64 {
	table, ok := temperatureTables[season]
	if !ok {
		table = temperatureTables[Spring]
	}

	var distance float64
	switch {
	case celsius < table.bandLow:
		distance = table.bandLow - celsius
	case celsius > table.bandHigh:
		distance = celsius - table.bandHigh
	default:
		return table.inBand
	}
	return lookup(table.steps, distance, table.beyond)
}
