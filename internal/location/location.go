package location

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"meteo-locator/internal/config"
	"meteo-locator/internal/providers/openmeteo"
	"meteo-locator/internal/timezone"
	"meteo-locator/internal/types"
)

const defaultCandidateLimit = 10

// Service turns place descriptions or coordinates into a single location
type Service interface {
	// FetchCandidates returns every geocoding hit with valid coordinates
	FetchCandidates(ctx context.Context, name, countryCode, language string, limit int) ([]types.GeoCandidate, error)
	// ResolveCity geocodes a place name and picks the best ranked hit
	ResolveCity(ctx context.Context, query CityQuery) (*types.ResolvedLocation, error)
	// ResolveAuto uses coordinates when both are given, the city otherwise
	ResolveAuto(ctx context.Context, query AutoQuery) (*types.ResolvedLocation, error)
}

// GeocodeProvider defines the interface for forward geocoding providers
type GeocodeProvider interface {
	Search(ctx context.Context, params openmeteo.SearchParams) ([]openmeteo.GeocodingResult, error)
}

// CityQuery is a free-text place with optional disambiguating hints
type CityQuery struct {
	City        string
	State       string
	County      string
	CountryCode string
	Language    string
	Limit       int
}

// AutoQuery carries either a coordinate pair or a CityQuery.
// DefaultTimezone is used when nothing better is known.
type AutoQuery struct {
	CityQuery
	Latitude        *float64
	Longitude       *float64
	DefaultTimezone string
}

type locationService struct {
	geocoder        GeocodeProvider
	timezoneService timezone.Service
	logger          *slog.Logger
}

// NewLocationService creates a location service backed by the Open-Meteo geocoding API.
// Coordinate based timezone lookup is only enabled when configured.
func NewLocationService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	var tzSvc timezone.Service
	if cfg.App.TimezoneLookup {
		svc, err := timezone.NewService()
		if err != nil {
			return nil, fmt.Errorf("failed to create timezone service: %w", err)
		}
		tzSvc = svc
	}

	geocoder := openmeteo.NewGeocodingClient(cfg.OpenMeteo.GeocodingURL, cfg.App.RequestTimeout, logger)
	return NewLocationServiceWithProviders(logger, geocoder, tzSvc), nil
}

// NewLocationServiceWithProviders creates a location service with custom providers.
// timezoneService may be nil.
func NewLocationServiceWithProviders(
	logger *slog.Logger,
	geocoder GeocodeProvider,
	timezoneService timezone.Service,
) Service {
	return &locationService{
		geocoder:        geocoder,
		timezoneService: timezoneService,
		logger:          logger.With("component", "location-service"),
	}
}

func (s *locationService) FetchCandidates(
	ctx context.Context,
	name, countryCode, language string,
	limit int,
) ([]types.GeoCandidate, error) {
	raw, err := s.search(ctx, name, countryCode, language, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]types.GeoCandidate, 0, len(raw))
	for _, r := range raw {
		c := toCandidate(r, name, countryCode)
		if !c.Coordinates.Valid() {
			s.logger.Warn("skipping geocoding result with invalid coordinates",
				"name", c.Name,
				"latitude", c.Coordinates.Latitude,
				"longitude", c.Coordinates.Longitude,
			)
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

func (s *locationService) ResolveCity(ctx context.Context, query CityQuery) (*types.ResolvedLocation, error) {
	city := strings.TrimSpace(query.City)
	if city == "" {
		return nil, ErrMissingLocation
	}

	raw, err := s.search(ctx, city, query.CountryCode, query.Language, query.Limit)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		s.logger.Info("no geocoding results", "city", city, "country_code", query.CountryCode)
		return nil, &NotFoundError{Name: city}
	}

	candidates := make([]types.GeoCandidate, len(raw))
	for i, r := range raw {
		candidates[i] = toCandidate(r, city, query.CountryCode)
	}

	ranked := Rank(candidates, Hints{
		CountryCode: query.CountryCode,
		State:       query.State,
		County:      query.County,
	})
	chosen := ranked[0]

	if err := chosen.Coordinates.Validate(); err != nil {
		s.logger.Error("best geocoding match has invalid coordinates",
			"city", city,
			"name", chosen.Name,
			"error", err,
		)
		return nil, fmt.Errorf("geocoding %q: %w", city, err)
	}

	s.logger.Debug("resolved city",
		"city", city,
		"name", chosen.Name,
		"admin1", chosen.Admin1,
		"admin2", chosen.Admin2,
		"latitude", chosen.Coordinates.Latitude,
		"longitude", chosen.Coordinates.Longitude,
		"candidates", len(raw),
	)

	loc := types.FromCandidate(city, chosen)
	return &loc, nil
}

func (s *locationService) ResolveAuto(ctx context.Context, query AutoQuery) (*types.ResolvedLocation, error) {
	if query.Latitude != nil && query.Longitude != nil {
		coords := types.NewCoords(*query.Latitude, *query.Longitude)
		if err := coords.Validate(); err != nil {
			return nil, err
		}

		return &types.ResolvedLocation{
			Mode:        types.ModeLatLon,
			Coordinates: coords,
			Timezone:    s.fallbackTimezone(coords, query.DefaultTimezone),
		}, nil
	}

	if strings.TrimSpace(query.City) == "" {
		return nil, ErrMissingLocation
	}

	loc, err := s.ResolveCity(ctx, query.CityQuery)
	if err != nil {
		return nil, err
	}
	if loc.Timezone == "" {
		loc.Timezone = s.fallbackTimezone(loc.Coordinates, query.DefaultTimezone)
	}

	return loc, nil
}

func (s *locationService) search(
	ctx context.Context,
	name, countryCode, language string,
	limit int,
) ([]openmeteo.GeocodingResult, error) {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	raw, err := s.geocoder.Search(ctx, openmeteo.SearchParams{
		Name:        name,
		CountryCode: countryCode,
		Language:    language,
		Count:       limit,
	})
	if err != nil {
		s.logger.Error("geocoding failed", "name", name, "error", err)
		return nil, fmt.Errorf("failed to geocode %q: %w", name, err)
	}

	return raw, nil
}

// fallbackTimezone returns the zone found for coords when lookup is enabled,
// def otherwise
func (s *locationService) fallbackTimezone(coords types.Coords, def string) string {
	if s.timezoneService == nil {
		return def
	}

	tz, err := s.timezoneService.GetTimezone(coords.Latitude, coords.Longitude)
	if err != nil {
		s.logger.Warn("timezone lookup failed, using default",
			"latitude", coords.Latitude,
			"longitude", coords.Longitude,
			"default", def,
			"error", err,
		)
		return def
	}
	return tz
}
