package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/models"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	DefaultTimeout = 10 * time.Second
)

// Config describes the location observations are fetched for
type Config struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
}

// OpenMeteoClient reads current conditions from the Open-Meteo forecast API
type OpenMeteoClient struct {
	baseURL    string
	latitude   float64
	longitude  float64
	httpClient *http.Client
}

// NewOpenMeteoClient creates a client. Zero values fall back to the public
// endpoint and a 10s timeout.
func NewOpenMeteoClient(cfg Config) *OpenMeteoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &OpenMeteoClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		latitude:   cfg.Latitude,
		longitude:  cfg.Longitude,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
	} `json:"current"`
	Daily *struct {
		TemperatureMin []*float64 `json:"temperature_2m_min"`
		TemperatureMax []*float64 `json:"temperature_2m_max"`
		Precipitation  []*float64 `json:"precipitation_sum"`
		WindSpeedMax   []*float64 `json:"wind_speed_10m_max"`
	} `json:"daily"`
}

// FetchCurrentRain returns today's accumulated precipitation in mm
func (c *OpenMeteoClient) FetchCurrentRain(ctx context.Context) (float64, error) {
	resp, err := c.forecast(ctx, url.Values{"daily": {"precipitation_sum"}})
	if err != nil {
		return 0, err
	}
	if resp.Daily == nil {
		return 0, fmt.Errorf("response has no daily section")
	}
	return today(resp.Daily.Precipitation, "precipitation_sum")
}

// FetchCurrentTemperature returns the current temperature and today's extremes in °C
func (c *OpenMeteoClient) FetchCurrentTemperature(ctx context.Context) (models.TemperatureReading, error) {
	resp, err := c.forecast(ctx, url.Values{
		"current": {"temperature_2m"},
		"daily":   {"temperature_2m_min,temperature_2m_max"},
	})
	if err != nil {
		return models.TemperatureReading{}, err
	}
	if resp.Current == nil || resp.Current.Temperature == nil {
		return models.TemperatureReading{}, fmt.Errorf("response is missing temperature_2m")
	}
	if resp.Daily == nil {
		return models.TemperatureReading{}, fmt.Errorf("response has no daily section")
	}

	minimum, err := today(resp.Daily.TemperatureMin, "temperature_2m_min")
	if err != nil {
		return models.TemperatureReading{}, err
	}
	maximum, err := today(resp.Daily.TemperatureMax, "temperature_2m_max")
	if err != nil {
		return models.TemperatureReading{}, err
	}

	return models.TemperatureReading{
		Current: *resp.Current.Temperature,
		Min:     minimum,
		Max:     maximum,
	}, nil
}

// FetchCurrentWind returns today's maximum wind speed at 10m in km/h
func (c *OpenMeteoClient) FetchCurrentWind(ctx context.Context) (models.WindReading, error) {
	resp, err := c.forecast(ctx, url.Values{"daily": {"wind_speed_10m_max"}})
	if err != nil {
		return models.WindReading{}, err
	}
	if resp.Daily == nil {
		return models.WindReading{}, fmt.Errorf("response has no daily section")
	}
	maximum, err := today(resp.Daily.WindSpeedMax, "wind_speed_10m_max")
	if err != nil {
		return models.WindReading{}, err
	}
	return models.WindReading{Max: maximum}, nil
}

func (c *OpenMeteoClient) forecast(ctx context.Context, params url.Values) (*forecastResponse, error) {
	params.Set("latitude", strconv.FormatFloat(c.latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(c.longitude, 'f', 4, 64))
	params.Set("timezone", "auto")
	params.Set("forecast_days", "1")
	params.Set("wind_speed_unit", "kmh")
	params.Set("precipitation_unit", "mm")

	rawURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call weather API: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read weather response: %w", err)
	}

	log.WithFields(log.Fields{
		"status":   res.StatusCode,
		"duration": time.Since(started),
	}).Debug("Weather API responded")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("weather API returned status %d: %s", res.StatusCode, truncate(string(body), 200))
	}

	var out forecastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	return &out, nil
}

// today returns the first entry of a daily series
func today(series []*float64, field string) (float64, error) {
	if len(series) == 0 || series[0] == nil {
		return 0, fmt.Errorf("response is missing %s", field)
	}
	return *series[0], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
