package mw

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"eventtrack-api/internal/events"
)

// DefaultVisitorCookie is the cookie holding the visitor id.
const DefaultVisitorCookie = "eventuserid"

const visitorCookieMaxAge = 365 * 24 * time.Hour

// VisitorRef reads the visitor cookie. Anything that is not a UUID is treated as absent.
func VisitorRef(c *fiber.Ctx, name string) events.VisitorRef {
	raw := c.Cookies(name)
	if _, err := uuid.Parse(raw); err != nil {
		return events.VisitorRef{}
	}
	return events.VisitorRef{ID: raw}
}

// SetVisitorCookie hands the resolved visitor id back to the client.
func SetVisitorCookie(c *fiber.Ctx, name, visitorID string) {
	secure := c.Protocol() == "https"
	c.Cookie(&fiber.Cookie{
		Name:   name,
		Value:  visitorID,
		Path:   "/",
		MaxAge: int(visitorCookieMaxAge.Seconds()),
		Secure: secure,
		// browsers drop SameSite=None cookies that are not Secure
		SameSite: lo.Ternary(secure, fiber.CookieSameSiteNoneMode, fiber.CookieSameSiteLaxMode),
	})
}
