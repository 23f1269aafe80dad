package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/httpx/kit"
	"eventtrack-api/internal/httpx/mw"
)

func tokenResponse(s accounts.Session) TokenResponse {
	return TokenResponse{AccessToken: s.AccessToken, TokenType: "Bearer", ExpiresIn: s.ExpiresIn, AccountID: s.AccountID}
}

func accountResponse(a accounts.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Email: a.Email, Name: a.Name, Status: a.Status, CreatedAt: a.CreatedAt}
}

func clientInfo(c *fiber.Ctx) accounts.ClientInfo {
	return accounts.ClientInfo{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
}

// RegisterHandler creates an account and logs it in.
//
//	@Summary      Register
//	@Description  Create an account (or claim an invited placeholder), then issue tokens
//	@Tags         auth
//	@Accept       json
//	@Produce      json
//	@Param        body  body   auth.RegisterRequest  true  "registration"
//	@Success      201   {object}  auth.TokenResponse
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      409   {object}  map[string]interface{}
//	@Router       /api/v1/auth/register [post]
func RegisterHandler(svc *accounts.Service, tokens *accounts.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return kit.BadRequest("email and password required", nil)
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if _, err := svc.Register(ctx, accounts.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name}); err != nil {
			return err
		}
		s, err := svc.Login(ctx, req.Email, req.Password, clientInfo(c))
		if err != nil {
			return err
		}
		SetRefreshCookie(c, s.RefreshToken, tokens.RefreshTTL())
		return kit.Created(c, tokenResponse(s))
	}
}

// LoginHandler authenticates by email and password.
//
//	@Summary      Login (password)
//	@Description  Verify credentials, issue access token and refresh cookie
//	@Tags         auth
//	@Accept       json
//	@Produce      json
//	@Param        body  body   auth.LoginRequest  true  "login"
//	@Success      200   {object}  auth.TokenResponse
//	@Failure      401   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Failure      429   {object}  map[string]interface{}
//	@Header       200   {string}  X-RateLimit-Limit      "Requests per window"
//	@Header       200   {string}  X-RateLimit-Remaining  "Remaining requests"
//	@Header       429   {string}  Retry-After            "Seconds to wait"
//	@Router       /api/v1/auth/login [post]
func LoginHandler(svc *accounts.Service, tokens *accounts.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return kit.BadRequest("email and password required", nil)
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		s, err := svc.Login(ctx, req.Email, req.Password, clientInfo(c))
		if err != nil {
			return err
		}
		SetRefreshCookie(c, s.RefreshToken, tokens.RefreshTTL())
		return kit.OK(c, tokenResponse(s))
	}
}

// RefreshHandler issues a new access token using refresh cookie.
//
//	@Summary      Refresh Access Token
//	@Description  Mint new access token from refresh cookie
//	@Tags         auth
//	@Produce      json
//	@Success      200   {object}  auth.TokenResponse
//	@Failure      401   {object}  map[string]interface{}
//	@Router       /api/v1/auth/refresh [post]
func RefreshHandler(svc *accounts.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rt := c.Cookies(refreshCookie)
		if rt == "" {
			return fiber.ErrUnauthorized
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		s, err := svc.Refresh(ctx, rt)
		if err != nil {
			return err
		}
		return kit.OK(c, tokenResponse(s))
	}
}

// LogoutHandler ends the caller's session and clears the refresh cookie.
//
//	@Summary      Logout
//	@Description  End the session named by the refresh cookie, or by the bearer token when no cookie is sent. Access tokens already issued expire naturally
//	@Tags         auth
//	@Success      204   {string}  string  "no content"
//	@Router       /api/v1/auth/logout [post]
func LogoutHandler(svc *accounts.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		var err error
		if rt := c.Cookies(refreshCookie); rt != "" {
			err = svc.Logout(ctx, rt)
		} else if ac := mw.Auth(c); ac != nil && ac.SessionID != "" {
			err = svc.EndSession(ctx, ac.AccountID, ac.SessionID)
		}
		ClearRefreshCookie(c)
		// an already ended or unknown session logs out as a no-op
		if err != nil && !errors.Is(err, apperr.ErrInvalidCredential) {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MeHandler returns the authenticated account.
//
//	@Summary      Who am I
//	@Description  Return the current account
//	@Tags         auth
//	@Produce      json
//	@Security     BearerAuth
//	@Success      200   {object}  auth.AccountResponse
//	@Failure      401   {object}  map[string]interface{}
//	@Router       /api/v1/auth/me [get]
func MeHandler(svc *accounts.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := mw.AccountID(c)
		if id == "" {
			return fiber.ErrUnauthorized
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		a, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		return kit.OK(c, accountResponse(a))
	}
}

// UpdateMeHandler edits the authenticated account's profile.
//
//	@Summary      Update account
//	@Description  Change the current account's name. An empty name is a no-op warning
//	@Tags         auth
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        body  body   auth.UpdateAccountRequest  true  "changes"
//	@Success      200   {object}  auth.AccountResponse
//	@Failure      401   {object}  map[string]interface{}
//	@Router       /api/v1/auth/me [patch]
func UpdateMeHandler(svc *accounts.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateAccountRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		a, err := svc.UpdateAccount(ctx, mw.AccountID(c), accounts.UpdateInput{Name: req.Name})
		if err != nil {
			return err
		}
		return kit.OK(c, accountResponse(a))
	}
}

// DisableMeHandler deactivates the authenticated account and ends all its sessions.
//
//	@Summary      Disable account
//	@Description  Mark the current account INACTIVE; login and refresh are refused afterwards
//	@Tags         auth
//	@Security     BearerAuth
//	@Success      204   {string}  string  "no content"
//	@Failure      401   {object}  map[string]interface{}
//	@Router       /api/v1/auth/me/disable [post]
func DisableMeHandler(svc *accounts.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if err := svc.DisableAccount(ctx, mw.AccountID(c)); err != nil {
			return err
		}
		ClearRefreshCookie(c)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Mount registers the auth routes under r.
func Mount(r fiber.Router, svc *accounts.Service, tokens *accounts.Tokens, requireAccount fiber.Handler) {
	r.Post("/register", RegisterHandler(svc, tokens))
	r.Post("/login", LoginHandler(svc, tokens))
	r.Post("/refresh", RefreshHandler(svc))
	r.Post("/logout", LogoutHandler(svc))
	r.Get("/me", requireAccount, MeHandler(svc))
	r.Patch("/me", requireAccount, UpdateMeHandler(svc))
	r.Post("/me/disable", requireAccount, DisableMeHandler(svc))
}
