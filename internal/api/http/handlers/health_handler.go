package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shaileshgontewar/crm-server/internal/persistence"
)

// HealthHandler responds to health probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Check handles GET /api/health, reporting dependency status.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	healthy := true

	if err := h.postgres.Ping(ctx); err != nil {
		deps["postgres"] = err.Error()
		healthy = false
	} else {
		deps["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		deps["redis"] = err.Error()
	} else {
		deps["redis"] = "ok"
	}

	if !healthy {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"success":      false,
			"message":      "one or more dependencies unavailable",
			"dependencies": deps,
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Server is running",
		"service":      h.serviceName,
		"version":      h.version,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"dependencies": deps,
	})
}
