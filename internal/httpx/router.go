package httpx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/config"
	"eventtrack-api/internal/events"
	"eventtrack-api/internal/httpx/auth"
	eventhttp "eventtrack-api/internal/httpx/events"
	"eventtrack-api/internal/httpx/mw"
	orghttp "eventtrack-api/internal/httpx/orgs"
	"eventtrack-api/internal/orgs"
	"eventtrack-api/internal/redisx"
)

// Deps are the services and clients the routes are bound to. Redis and DB
// are optional.
type Deps struct {
	Config   *config.Config
	DB       Pinger
	Redis    *redisx.Client
	Tokens   *accounts.Tokens
	Accounts *accounts.Service
	Orgs     *orgs.Service
	Events   *events.Service
}

// Register mounts the service routes on app.
func Register(app *fiber.App, d Deps) {
	app.Get("/health", HealthHandler(d.DB))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	if d.Accounts == nil {
		return
	}
	parse := func(tok string) (string, string, error) {
		c, err := d.Tokens.Parse(tok, accounts.KindAccess)
		if err != nil {
			return "", "", err
		}
		return c.Subject, c.SessionID, nil
	}
	requireAccount := mw.RequireAccount()
	ev := d.Config.Events

	api := app.Group("/api/v1", mw.JWT(parse, accounts.SubjectPrefix))
	auth.Mount(api.Group("/auth"), d.Accounts, d.Tokens, requireAccount)
	orghttp.Mount(api.Group("/orgs"), d.Orgs, requireAccount)
	eventhttp.Mount(api.Group("/events"), d.Events, ev.VisitorCookie, eventhttp.Guards{
		RequireAccount: requireAccount,
		APIKey:         mw.APIKey(d.Events),
		RateLimit:      mw.RateLimit(d.Redis, ev.RateLimitWindowSec, ev.RateLimitMax),
	})
}
