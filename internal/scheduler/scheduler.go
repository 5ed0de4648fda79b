// Package scheduler keeps the stored forecasts of tracked locations fresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meteo-locator/internal/config"
	"meteo-locator/internal/weather"

	"github.com/go-co-op/gocron"
)

const defaultJobTimeout = time.Minute

// Forecaster is the part of the weather service the scheduler needs
type Forecaster interface {
	GetWeatherForecast(ctx context.Context, req weather.Request) (*weather.Result, error)
}

// Scheduler periodically refreshes the forecast of every tracked location
type Scheduler struct {
	scheduler  *gocron.Scheduler
	forecaster Forecaster
	locations  []config.TrackedLocation
	interval   time.Duration
	jobTimeout time.Duration
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Nothing runs until Start is called.
func New(locations []config.TrackedLocation, interval time.Duration, forecaster Forecaster, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		forecaster: forecaster,
		locations:  locations,
		interval:   interval,
		jobTimeout: defaultJobTimeout,
		logger:     logger.With("component", "scheduler"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start schedules the refresh job. The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("no tracked locations configured, nothing to schedule")
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s", s.interval)
	}

	// a slow run must not overlap the next tick
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.interval).Do(func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		"interval", s.interval,
		"locations", len(s.locations),
	)
	return nil
}

// Stop cancels the running job, if any, and stops future runs
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}

// RunOnce refreshes every tracked location in order and returns how many failed.
// Failures are logged and do not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	start := time.Now()
	failed := 0

	for _, loc := range s.locations {
		if ctx.Err() != nil {
			s.logger.Warn("refresh run cancelled", "error", ctx.Err())
			return failed + 1
		}

		if err := s.refresh(ctx, loc); err != nil {
			failed++
			s.logger.Error("failed to refresh location",
				"city", loc.City,
				"latitude", loc.Latitude,
				"longitude", loc.Longitude,
				"error", err,
			)
		}
	}

	s.logger.Info("refresh run completed",
		"locations", len(s.locations),
		"failed", failed,
		"duration", time.Since(start),
	)
	return failed
}

func (s *Scheduler) refresh(ctx context.Context, loc config.TrackedLocation) error {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	res, err := s.forecaster.GetWeatherForecast(ctx, weather.Request{
		City:      loc.City,
		State:     loc.State,
		County:    loc.County,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	})
	if err != nil {
		return err
	}

	s.logger.Debug("location refreshed", "key", res.Key)
	return nil
}
