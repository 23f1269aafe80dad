package mw

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/events"
)

// HeaderAPIKey carries the channel API key on ingestion requests.
const HeaderAPIKey = "apikey"

const localKey = "apikey"

// KeyValidator resolves an API key to its channel.
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context, key string) (events.KeyContext, error)
}

// APIKey validates the apikey header and stores the resolved KeyContext.
// Validation failures are returned as is so the error handler renders them.
func APIKey(v KeyValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		kc, err := v.ValidateAPIKey(ctx, c.Get(HeaderAPIKey))
		if err != nil {
			return err
		}
		c.Locals(localKey, kc)
		return c.Next()
	}
}

// KeyContext returns the KeyContext stored by APIKey.
func KeyContext(c *fiber.Ctx) (events.KeyContext, bool) {
	kc, ok := c.Locals(localKey).(events.KeyContext)
	return kc, ok
}
