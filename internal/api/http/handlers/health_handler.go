package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
}

// NewHealthHandler constructs handler.
func NewHealthHandler(postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if err := h.postgres.Ping(c.UserContext()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}
	if err := h.redis.Ping(c.UserContext()); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
