package httpx

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/httpx/kit"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and, when db is set, database reachability.
//
//	@Summary		Health check
//	@Description	Liveness and database reachability
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string	"healthy"
//	@Failure		503	{object}	map[string]interface{}
//	@Router			/health [get]
func HealthHandler(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Context(), time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				httpxLogger.Sugar().Warnw("health check failed", "error", err)
				return fiber.NewError(fiber.StatusServiceUnavailable, "database unreachable")
			}
		}
		return kit.OK(c, fiber.Map{"status": "ok"})
	}
}
