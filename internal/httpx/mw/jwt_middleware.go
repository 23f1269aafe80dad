// Package mw contains HTTP middleware: account authentication, API key
// resolution, visitor cookies and rate limiting.
package mw

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localAuth = "auth"

// AuthContext holds the authenticated account extracted from an access token.
type AuthContext struct {
	Subject   string // account:<uuid>
	AccountID string
	SessionID string
}

// TokenParser verifies an access token and returns its subject and the
// server-side session it was issued for.
type TokenParser func(token string) (subject, sessionID string, err error)

// JWT attaches an AuthContext when a valid bearer token is present. Requests
// without one pass through untouched; RequireAccount enforces it.
func JWT(parse TokenParser, subjectPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
			return c.Next()
		}
		sub, sid, err := parse(strings.TrimSpace(authz[7:]))
		if err == nil && strings.HasPrefix(sub, subjectPrefix) && len(sub) > len(subjectPrefix) {
			c.Locals(localAuth, &AuthContext{Subject: sub, AccountID: strings.TrimPrefix(sub, subjectPrefix), SessionID: sid})
		}
		return c.Next()
	}
}

// RequireAccount rejects requests without an authenticated account.
func RequireAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Auth(c) == nil {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// Auth returns the request's AuthContext or nil.
func Auth(c *fiber.Ctx) *AuthContext {
	ac, _ := c.Locals(localAuth).(*AuthContext)
	return ac
}

// AccountID returns the authenticated account id or "".
func AccountID(c *fiber.Ctx) string {
	if ac := Auth(c); ac != nil {
		return ac.AccountID
	}
	return ""
}
