package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const refreshCookie = "refresh_token"

// SetRefreshCookie sets the refresh token as an HTTP-only cookie.
func SetRefreshCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    token,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: "Lax",
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearRefreshCookie clears the refresh cookie.
func ClearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{Name: refreshCookie, Value: "", MaxAge: -1, Path: "/"})
}
