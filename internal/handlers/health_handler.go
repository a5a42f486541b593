package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db     Pinger
	events bool
}

// NewHealthHandler creates a HealthHandler. db may be nil for the in-memory store.
func NewHealthHandler(db Pinger, eventsEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, events: eventsEnabled}
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth reports service and database status.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "memory",
		"events":   "disabled",
	}
	if h.events {
		body["events"] = "enabled"
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "down"
			body["error"] = err.Error()
		} else {
			body["database"] = "up"
		}
	}

	return c.Status(status).JSON(body)
}
