package openmeteo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meteo-locator/internal/providers/upstream"
	"meteo-locator/internal/types"

	"github.com/tidwall/gjson"
)

// API Docs: https://open-meteo.com/en/docs
// Sample request: https://api.open-meteo.com/v1/forecast?latitude=-22.9&longitude=-47.06&timezone=America%2FSao_Paulo&forecast_days=7&language=pt&current=temperature_2m,weather_code&hourly=temperature_2m&daily=sunrise,sunset
const (
	baseForecastURL = "https://api.open-meteo.com/v1/forecast"
)

var (
	DefaultCurrentVars = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"apparent_temperature",
		"precipitation",
		"weather_code",
		"wind_speed_10m",
		"wind_direction_10m",
	}

	DefaultHourlyVars = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"precipitation",
		"wind_speed_10m",
	}

	DefaultDailyVars = []string{
		"temperature_2m_max",
		"temperature_2m_min",
		"precipitation_sum",
		"wind_speed_10m_max",
		"sunrise",
		"sunset",
	}
)

// ForecastRequest describes a single forecast fetch. Empty variable lists
// fall back to the defaults above.
type ForecastRequest struct {
	Latitude     float64
	Longitude    float64
	Timezone     string
	ForecastDays int
	Language     string
	Current      []string
	Hourly       []string
	Daily        []string
}

type ForecastClient struct {
	client  *upstream.Client
	baseURL string
}

// NewForecastClient creates a forecast client. An empty baseURL selects the public endpoint.
func NewForecastClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ForecastClient {
	if baseURL == "" {
		baseURL = baseForecastURL
	}
	return &ForecastClient{
		client:  upstream.NewClient("openmeteo-forecast", timeout, logger),
		baseURL: baseURL,
	}
}

// NewForecastClientWithHTTP creates a forecast client using the given http.Client
func NewForecastClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *ForecastClient {
	return &ForecastClient{
		client:  upstream.NewClientWithHTTP("openmeteo-forecast", httpClient, logger),
		baseURL: baseURL,
	}
}

// GetForecast fetches the forecast and returns the payload untouched.
// Coordinates are checked before any request is made.
func (c *ForecastClient) GetForecast(ctx context.Context, req ForecastRequest) ([]byte, error) {
	if err := types.NewCoords(req.Latitude, req.Longitude).Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	if req.Timezone != "" {
		q.Set("timezone", req.Timezone)
	}
	if req.ForecastDays > 0 {
		q.Set("forecast_days", strconv.Itoa(req.ForecastDays))
	}
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	q.Set("current", joinOrDefault(req.Current, DefaultCurrentVars))
	q.Set("hourly", joinOrDefault(req.Hourly, DefaultHourlyVars))
	q.Set("daily", joinOrDefault(req.Daily, DefaultDailyVars))

	body, err := c.client.GetRaw(ctx, c.baseURL, q)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, &upstream.Error{
			Service: "openmeteo-forecast",
			Err:     fmt.Errorf("failed to decode response: payload is not a JSON object"),
		}
	}

	return body, nil
}

func joinOrDefault(vars, def []string) string {
	if len(vars) == 0 {
		vars = def
	}
	return strings.Join(vars, ",")
}
