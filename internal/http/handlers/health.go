// Package handlers provides HTTP API handlers for rendermux.
package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status        string  `json:"status" example:"healthy"`
	Timestamp     string  `json:"timestamp"`
	Version       string  `json:"version"`
	Uptime        string  `json:"uptime" example:"1h2m3s"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	return &HealthOutput{
		Body: HealthResponse{
			Status:        "healthy",
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
		},
	}, nil
}
