package main

import (
	"errors"
	"net/http"

	"meteo-locator/internal/location"
	"meteo-locator/internal/providers/upstream"
	"meteo-locator/internal/types"
	"meteo-locator/internal/weather"

	"github.com/gin-gonic/gin"
)

// GetForecastInput defines the query parameters for the forecast endpoint
type GetForecastInput struct {
	City         string   `form:"city"`          // Place name to geocode
	State        string   `form:"state"`         // Optional first-level division hint
	County       string   `form:"county"`        // Optional second-level division hint
	Latitude     *float64 `form:"latitude"`      // Used with longitude instead of city
	Longitude    *float64 `form:"longitude"`     // Used with latitude instead of city
	ForecastDays int      `form:"forecast_days"` // 1 to 16
}

// GetHistoryInput defines the query parameters for the history endpoint
type GetHistoryInput struct {
	City      string   `form:"city"`
	Latitude  *float64 `form:"latitude"`
	Longitude *float64 `form:"longitude"`
}

// ErrorResponse is returned by every failing endpoint
type ErrorResponse struct {
	Error string `json:"error" example:"no geocoding results for \"Xyzzyville\""`
}

// handleGetForecast godoc
// @Summary Get weather forecast
// @Description Resolve a city (with optional state and county hints) or a latitude/longitude pair, fetch its forecast and store it. The Open-Meteo payload is returned with a _resolved_location object added.
// @Tags weather
// @Produce json
// @Param city query string false "City name" example(Campinas)
// @Param state query string false "State hint" example(São Paulo)
// @Param county query string false "County hint"
// @Param latitude query number false "Latitude in decimal degrees" minimum(-90) maximum(90)
// @Param longitude query number false "Longitude in decimal degrees" minimum(-180) maximum(180)
// @Param forecast_days query int false "Forecast horizon in days" minimum(1) maximum(16) default(7)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /weather/forecast [get]
func (app *App) handleGetForecast(c *gin.Context) {
	var input GetForecastInput

	// Bind query parameters
	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// Delegate to business layer
	res, err := app.weatherService.GetWeatherForecast(c.Request.Context(), weather.Request{
		City:         input.City,
		State:        input.State,
		County:       input.County,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		ForecastDays: input.ForecastDays,
	})
	if err != nil {
		app.writeError(c, "failed to get forecast", err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Payload)
}

// handleGetHistory godoc
// @Summary Get stored forecasts
// @Description Return the stored record of a location: the latest forecast and every forecast kept by timestamp. Upstream services are not called.
// @Tags weather
// @Produce json
// @Param city query string false "City name as used for the forecast call"
// @Param latitude query number false "Latitude in decimal degrees"
// @Param longitude query number false "Longitude in decimal degrees"
// @Success 200 {object} forecast.Record
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /weather/history [get]
func (app *App) handleGetHistory(c *gin.Context) {
	var input GetHistoryInput

	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	rec, err := app.weatherService.GetHistory(c.Request.Context(), weather.HistoryRequest{
		City:      input.City,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	})
	if err != nil {
		app.writeError(c, "failed to get history", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// writeError maps business errors to status codes
func (app *App) writeError(c *gin.Context, msg string, err error) {
	var (
		invalidCoords *types.InvalidCoordinateError
		notFound      *location.NotFoundError
		upstreamErr   *upstream.Error
	)

	switch {
	case errors.As(err, &invalidCoords),
		errors.Is(err, location.ErrMissingLocation),
		errors.Is(err, weather.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &notFound), errors.Is(err, weather.ErrNoRecord):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &upstreamErr):
		app.logger.Error(msg,
			"service", upstreamErr.Service,
			"status_code", upstreamErr.StatusCode,
			"error", err,
		)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		// Other errors are internal server errors
		app.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
	}
}
