package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"meteo-locator/internal/config"
	"meteo-locator/internal/forecast"
	"meteo-locator/internal/location"
	"meteo-locator/internal/providers/openmeteo"
	"meteo-locator/internal/types"

	"github.com/redis/go-redis/v9"
)

// ErrNoRecord is returned when nothing has been stored for a location yet
var ErrNoRecord = errors.New("no forecast stored for location")

type ForecastProvider interface {
	// GetForecast fetches the raw forecast payload for a point
	GetForecast(ctx context.Context, req openmeteo.ForecastRequest) ([]byte, error)
}

// RecordStore persists forecasts per location key.
// forecast.Store and forecast.RedisStore implement it.
type RecordStore interface {
	Load(ctx context.Context, key string) (forecast.Record, error)
	Update(ctx context.Context, key string, payload []byte) (forecast.Record, error)
}

type Service interface {
	// GetWeatherForecast resolves the place, fetches its forecast, stores it
	// and returns the payload with _resolved_location added
	GetWeatherForecast(ctx context.Context, req Request) (*Result, error)
	// GetHistory returns the stored record of a place without calling upstream
	GetHistory(ctx context.Context, req HistoryRequest) (*forecast.Record, error)
}

// Result is the outcome of one forecast call
type Result struct {
	Key      string
	Location *types.ResolvedLocation
	Payload  json.RawMessage
}

type weatherService struct {
	locationService  location.Service
	forecastProvider ForecastProvider
	store            RecordStore
	cfg              *config.Config
	logger           *slog.Logger
}

func NewWeatherService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	locSvc, err := location.NewLocationService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create location service: %w", err)
	}

	store, err := newRecordStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewWeatherServiceWithProviders(
		locSvc,
		openmeteo.NewForecastClient(cfg.OpenMeteo.ForecastURL, cfg.App.RequestTimeout, logger),
		store,
		cfg,
		logger,
	), nil
}

func newRecordStore(cfg *config.Config, logger *slog.Logger) (RecordStore, error) {
	switch cfg.App.Store {
	case "", config.StoreFile:
		return forecast.NewFileStore(cfg.App.DataDir, cfg.App.LockRecords, logger), nil
	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return forecast.NewRedisStore(redis.NewClient(opt), cfg.Redis.KeyPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown record store %q", cfg.App.Store)
	}
}

func NewWeatherServiceWithProviders(
	locationService location.Service,
	forecastProvider ForecastProvider,
	store RecordStore,
	cfg *config.Config,
	logger *slog.Logger,
) Service {
	return &weatherService{
		locationService:  locationService,
		forecastProvider: forecastProvider,
		store:            store,
		cfg:              cfg,
		logger:           logger.With("component", "weather-service"),
	}
}

func (s *weatherService) GetWeatherForecast(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	req = s.withDefaults(req)

	loc, err := s.locationService.ResolveAuto(ctx, location.AutoQuery{
		CityQuery: location.CityQuery{
			City:        req.City,
			State:       req.State,
			County:      req.County,
			CountryCode: req.CountryCode,
			Language:    req.Language,
			Limit:       s.cfg.App.CandidateLimit,
		},
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		DefaultTimezone: s.cfg.App.Timezone,
	})
	if err != nil {
		return nil, err
	}

	payload, err := s.forecastProvider.GetForecast(ctx, openmeteo.ForecastRequest{
		Latitude:     loc.Coordinates.Latitude,
		Longitude:    loc.Coordinates.Longitude,
		Timezone:     loc.Timezone,
		ForecastDays: req.ForecastDays,
		Language:     req.Language,
		Current:      s.cfg.OpenMeteo.Current,
		Hourly:       s.cfg.OpenMeteo.Hourly,
		Daily:        s.cfg.OpenMeteo.Daily,
	})
	if err != nil {
		s.logger.Error("failed to fetch forecast",
			"mode", loc.Mode,
			"latitude", loc.Coordinates.Latitude,
			"longitude", loc.Coordinates.Longitude,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	payload, err = augment(payload, loc)
	if err != nil {
		return nil, err
	}

	key := forecast.KeyFor(*loc)
	if _, err := s.store.Update(ctx, key, payload); err != nil {
		s.logger.Error("failed to store forecast", "key", key, "error", err)
		return nil, fmt.Errorf("failed to store forecast: %w", err)
	}

	s.logger.Info("forecast updated",
		"key", key,
		"mode", loc.Mode,
		"name", loc.Name,
		"timezone", loc.Timezone,
		"forecast_days", req.ForecastDays,
	)

	return &Result{
		Key:      key,
		Location: loc,
		Payload:  payload,
	}, nil
}

func (s *weatherService) GetHistory(ctx context.Context, req HistoryRequest) (*forecast.Record, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	key, err := historyKey(req)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %q: %w", key, err)
	}
	if rec.Latest == nil && len(rec.History) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, key)
	}

	return &rec, nil
}

// historyKey derives the storage key the same way a forecast call would,
// without geocoding
func historyKey(req HistoryRequest) (string, error) {
	if req.Latitude != nil && req.Longitude != nil {
		coords := types.NewCoords(*req.Latitude, *req.Longitude)
		if err := coords.Validate(); err != nil {
			return "", err
		}
		return forecast.KeyFor(types.ResolvedLocation{Mode: types.ModeLatLon, Coordinates: coords}), nil
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		return "", location.ErrMissingLocation
	}
	return forecast.KeyFor(types.ResolvedLocation{Mode: types.ModeCity, Query: city}), nil
}

func (s *weatherService) withDefaults(req Request) Request {
	if req.CountryCode == "" {
		req.CountryCode = s.cfg.App.CountryCode
	}
	if req.Language == "" {
		req.Language = s.cfg.App.Language
	}
	if req.ForecastDays == 0 {
		req.ForecastDays = s.cfg.App.ForecastDays
	}
	return req
}
