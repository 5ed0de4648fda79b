package main

import (
	"net/http"

	"meteo-locator/internal/config"

	"github.com/gin-gonic/gin"
)

// PingResponse represents the response for the ping endpoint
type PingResponse struct {
	Message string `json:"message" example:"pong"` // Response message
	Store   string `json:"store" example:"file"`   // Record backend in use
}

// handlePing godoc
// @Summary Ping health check
// @Description Check if the API is running and report the record backend
// @Tags health
// @Produce json
// @Success 200 {object} PingResponse
// @Router /ping [get]
func (app *App) handlePing(c *gin.Context) {
	store := app.cfg.App.Store
	if store == "" {
		store = config.StoreFile
	}
	c.JSON(http.StatusOK, PingResponse{
		Message: "pong",
		Store:   store,
	})
}
