package models

// TemperatureReading is the current temperature together with today's extremes, in °C
type TemperatureReading struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// WindReading carries today's maximum wind speed in km/h
type WindReading struct {
	Max float64 `json:"max"`
}
