package openmeteo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"meteo-locator/internal/providers/upstream"
	"meteo-locator/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const campinasResponse = `{
  "results": [
    {"id": 3467865, "name": "Campinas", "latitude": -22.90556, "longitude": -47.06083,
     "country_code": "BR", "admin1": "São Paulo", "admin2": "Campinas",
     "timezone": "America/Sao_Paulo", "population": 1031554},
    {"id": 3467866, "name": "Campinas", "latitude": -16.5, "longitude": -49.0,
     "country_code": "BR", "admin1": "Goiás", "population": "5000"}
  ],
  "generationtime_ms": 0.9
}`

func TestGeocodingClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Campinas", q.Get("name"))
		assert.Equal(t, "10", q.Get("count"))
		assert.Equal(t, "pt", q.Get("language"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "BR", q.Get("countryCode"))
		_, _ = io.WriteString(w, campinasResponse)
	}))
	defer srv.Close()

	client := NewGeocodingClientWithHTTP(srv.URL, srv.Client(), testLogger())
	results, err := client.Search(context.Background(), SearchParams{
		Name:        "Campinas",
		CountryCode: "BR",
		Language:    "pt",
		Count:       10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "São Paulo", results[0].Admin1)
	require.NotNil(t, results[0].Latitude)
	assert.InDelta(t, -22.90556, *results[0].Latitude, 1e-9)
	assert.Equal(t, float64(1031554), results[0].Population)
	// string populations are passed through as-is
	assert.Equal(t, "5000", results[1].Population)
	assert.Empty(t, results[1].Timezone)
}

func TestGeocodingClient_Search_NoResults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "results missing", body: `{"generationtime_ms": 0.3}`},
		{name: "results empty", body: `{"results": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewGeocodingClientWithHTTP(srv.URL, srv.Client(), testLogger())
			results, err := client.Search(context.Background(), SearchParams{Name: "Nowhere", Count: 10})
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestGeocodingClient_Search_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewGeocodingClientWithHTTP(srv.URL, srv.Client(), testLogger())
	_, err := client.Search(context.Background(), SearchParams{Name: "Campinas", Count: 10})

	var upErr *upstream.Error
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
}

func TestForecastClient_GetForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-22.90556", q.Get("latitude"))
		assert.Equal(t, "-47.06083", q.Get("longitude"))
		assert.Equal(t, "America/Sao_Paulo", q.Get("timezone"))
		assert.Equal(t, "3", q.Get("forecast_days"))
		assert.Equal(t, "pt", q.Get("language"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m,wind_direction_10m", q.Get("current"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m", q.Get("hourly"))
		assert.Equal(t, "sunrise,sunset", q.Get("daily"))
		_, _ = io.WriteString(w, `{"latitude":-22.9,"longitude":-47.06,"current":{"time":"2024-01-01T12:00","temperature_2m":27.1}}`)
	}))
	defer srv.Close()

	client := NewForecastClientWithHTTP(srv.URL, srv.Client(), testLogger())
	body, err := client.GetForecast(context.Background(), ForecastRequest{
		Latitude:     -22.90556,
		Longitude:    -47.06083,
		Timezone:     "America/Sao_Paulo",
		ForecastDays: 3,
		Language:     "pt",
		Daily:        []string{"sunrise", "sunset"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T12:00", gjson.GetBytes(body, "current.time").String())
}

func TestForecastClient_GetForecast_InvalidCoordinates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewForecastClientWithHTTP(srv.URL, srv.Client(), testLogger())
	_, err := client.GetForecast(context.Background(), ForecastRequest{Latitude: 91, Longitude: 0})

	var coordErr *types.InvalidCoordinateError
	require.True(t, errors.As(err, &coordErr))
	assert.Zero(t, hits.Load(), "no request must be made for invalid coordinates")
}

func TestForecastClient_GetForecast_NotAnObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[1,2,3]`)
	}))
	defer srv.Close()

	client := NewForecastClientWithHTTP(srv.URL, srv.Client(), testLogger())
	_, err := client.GetForecast(context.Background(), ForecastRequest{Latitude: 1, Longitude: 1})

	var upErr *upstream.Error
	require.True(t, errors.As(err, &upErr))
}
