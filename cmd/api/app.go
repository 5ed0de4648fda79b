package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"meteo-locator/internal/config"
	"meteo-locator/internal/scheduler"
	"meteo-locator/internal/weather"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates application dependencies
type App struct {
	router         *gin.Engine
	logger         *slog.Logger
	weatherService weather.Service
	scheduler      *scheduler.Scheduler
	cfg            *config.Config
}

// NewApp creates a new application with injected dependencies
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize weather service
	weatherSvc, err := weather.NewWeatherService(cfg, logger)
	if err != nil {
		return nil, err
	}

	return newApp(cfg, logger, weatherSvc), nil
}

func newApp(cfg *config.Config, logger *slog.Logger, weatherSvc weather.Service) *App {
	// Set Gin mode from configuration
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if len(cfg.Server.CorsOrigins) > 0 {
		router.Use(corsMiddleware(cfg.Server.CorsOrigins))
	}
	if cfg.Server.RateLimit > 0 {
		router.Use(newIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst, logger).middleware())
	}

	app := &App{
		router:         router,
		logger:         logger,
		weatherService: weatherSvc,
		cfg:            cfg,
	}

	if cfg.Refresh.Enabled {
		app.scheduler = scheduler.New(cfg.Refresh.Locations, cfg.Refresh.Interval, weatherSvc, logger)
	}

	// Register routes
	app.registerRoutes()

	return app
}

// Run starts the refresh scheduler, if enabled, and the HTTP server.
// It returns once ctx is done and the server has shut down.
func (app *App) Run(ctx context.Context, addr string) error {
	if app.scheduler != nil {
		if err := app.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer app.scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
