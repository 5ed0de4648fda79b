package openmeteo

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meteo-locator/internal/providers/upstream"
)

// API Docs: https://open-meteo.com/en/docs/geocoding-api
// Sample request: https://geocoding-api.open-meteo.com/v1/search?name=Campinas&count=10&language=pt&format=json&countryCode=BR
const (
	baseGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
)

// SearchParams are the filters sent to the geocoding API
type SearchParams struct {
	Name        string
	CountryCode string
	Language    string
	Count       int
}

type GeocodingClient struct {
	client  *upstream.Client
	baseURL string
}

// NewGeocodingClient creates a geocoding client. An empty baseURL selects the public endpoint.
func NewGeocodingClient(baseURL string, timeout time.Duration, logger *slog.Logger) *GeocodingClient {
	if baseURL == "" {
		baseURL = baseGeocodingURL
	}
	return &GeocodingClient{
		client:  upstream.NewClient("openmeteo-geocoding", timeout, logger),
		baseURL: baseURL,
	}
}

// NewGeocodingClientWithHTTP creates a geocoding client using the given http.Client
func NewGeocodingClientWithHTTP(baseURL string, httpClient *http.Client, logger *slog.Logger) *GeocodingClient {
	return &GeocodingClient{
		client:  upstream.NewClientWithHTTP("openmeteo-geocoding", httpClient, logger),
		baseURL: baseURL,
	}
}

// Search returns the raw records reported for params.Name, in provider order.
// No match yields an empty slice and a nil error.
func (c *GeocodingClient) Search(ctx context.Context, params SearchParams) ([]GeocodingResult, error) {
	q := url.Values{}
	q.Set("name", params.Name)
	q.Set("count", strconv.Itoa(params.Count))
	q.Set("format", "json")
	if params.Language != "" {
		q.Set("language", params.Language)
	}
	if params.CountryCode != "" {
		q.Set("countryCode", params.CountryCode)
	}

	var apiResp GeocodingAPIResponse
	if err := c.client.GetJSON(ctx, c.baseURL, q, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Results == nil {
		return []GeocodingResult{}, nil
	}
	return apiResp.Results, nil
}
