// Package events exposes channel management and ingestion over HTTP.
package events

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	eventsvc "eventtrack-api/internal/events"
	"eventtrack-api/internal/httpx/kit"
	"eventtrack-api/internal/httpx/mw"
)

func withTimeout(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 3*time.Second)
}

func keyContext(c *fiber.Ctx) (eventsvc.KeyContext, error) {
	kc, ok := mw.KeyContext(c)
	if !ok {
		return kc, fiber.ErrUnauthorized
	}
	return kc, nil
}

// CreateChannelHandler creates a channel and returns its first API key.
//
//	@Summary      Create channel
//	@Tags         events
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        body  body  events.CreateChannelRequest  true  "channel"
//	@Success      201   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Router       /api/v1/events/channels [post]
func CreateChannelHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateChannelRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		out, err := svc.CreateChannel(ctx, req.OrgID, mw.AccountID(c), req.Name)
		if err != nil {
			return err
		}
		return kit.Created(c, out)
	}
}

// ListChannelsHandler lists an org's channels, newest first.
//
//	@Summary      List channels
//	@Tags         events
//	@Produce      json
//	@Security     BearerAuth
//	@Param        org_id      query  string  true   "org id"
//	@Param        limit       query  int     false  "page size (1..100)"
//	@Param        offset      query  int     false  "offset"
//	@Param        with_total  query  bool    false  "include total count"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      403  {object}  map[string]interface{}
//	@Router       /api/v1/events/channels [get]
func ListChannelsHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID := c.Query("org_id")
		if orgID == "" {
			return kit.BadRequest("org_id required", nil)
		}
		p, err := kit.ParsePaging(c)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		page, err := svc.ListChannels(ctx, mw.AccountID(c), orgID, p.Limit, p.Offset, p.WithTotal)
		if err != nil {
			return err
		}
		return kit.List(c, page.Items, p.Meta(len(page.Items), page.Total))
	}
}

// RotateKeyHandler expires the channel's key and issues a new one.
//
//	@Summary      Rotate API key
//	@Tags         events
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id   path  string  true  "channel id"
//	@Success      200  {object}  events.RotateKeyResponse
//	@Failure      403  {object}  map[string]interface{}
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /api/v1/events/channels/{id}/rotate-key [post]
func RotateKeyHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := withTimeout(c)
		defer cancel()

		key, err := svc.RotateAPIKey(ctx, c.Params("id"), mw.AccountID(c))
		if err != nil {
			return err
		}
		return kit.OK(c, RotateKeyResponse{ChannelID: c.Params("id"), APIKey: key})
	}
}

// GetChannelHandler returns the channel behind the apikey header.
//
//	@Summary      Get channel
//	@Tags         events
//	@Produce      json
//	@Security     BearerAuth
//	@Param        apikey  header  string  true  "channel API key"
//	@Success      200     {object}  map[string]interface{}
//	@Failure      401     {object}  map[string]interface{}
//	@Failure      404     {object}  map[string]interface{}
//	@Router       /api/v1/events/channel [get]
func GetChannelHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kc, err := keyContext(c)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		info, err := svc.GetChannel(ctx, mw.AccountID(c), kc)
		if err != nil {
			return err
		}
		return kit.OK(c, info)
	}
}

// ReceiveHandler records one event for the visitor in the cookie.
//
//	@Summary      Receive event
//	@Description  Records an event. A missing or unknown visitor cookie gets a new visitor, returned in the cookie.
//	@Tags         events
//	@Accept       json
//	@Produce      json
//	@Param        apikey  header  string                true  "channel API key"
//	@Param        body    body    events.ReceiveRequest  true  "event"
//	@Success      201     {object}  map[string]interface{}
//	@Failure      400     {object}  map[string]interface{}
//	@Failure      401     {object}  map[string]interface{}
//	@Failure      429     {object}  map[string]interface{}
//	@Header       201     {string}  X-RateLimit-Limit      "Requests per window"
//	@Header       201     {string}  X-RateLimit-Remaining  "Remaining requests"
//	@Header       429     {string}  Retry-After            "Seconds to wait"
//	@Router       /api/v1/events/receive [post]
func ReceiveHandler(svc *eventsvc.Service, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kc, err := keyContext(c)
		if err != nil {
			return err
		}
		var req ReceiveRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", err.Error())
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		out, err := svc.Record(ctx, kc, mw.VisitorRef(c, cookie), eventsvc.RecordInput{
			Name:       req.Name,
			UserIP:     c.IP(),
			UserAgent:  c.Get(fiber.HeaderUserAgent),
			Value:      req.Value,
			Attributes: req.Attributes,
		})
		if err != nil {
			return err
		}
		mw.SetVisitorCookie(c, cookie, out.VisitorID)
		return kit.Created(c, out)
	}
}

// IdentifyHandler attaches identity fields to the visitor in the cookie.
//
//	@Summary      Identify visitor
//	@Tags         events
//	@Accept       json
//	@Produce      json
//	@Param        apikey  header  string                 true  "channel API key"
//	@Param        body    body    events.IdentifyRequest  true  "identity"
//	@Success      200     {object}  map[string]interface{}
//	@Failure      400     {object}  map[string]interface{}
//	@Failure      401     {object}  map[string]interface{}
//	@Failure      429     {object}  map[string]interface{}
//	@Router       /api/v1/events/identify [post]
func IdentifyHandler(svc *eventsvc.Service, cookie string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kc, err := keyContext(c)
		if err != nil {
			return err
		}
		var req IdentifyRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		out, err := svc.Identify(ctx, kc, mw.VisitorRef(c, cookie), eventsvc.IdentifyInput{
			Email: req.Email, Phone: req.Phone, ClientUID: req.ClientUID,
		})
		if err != nil {
			return err
		}
		mw.SetVisitorCookie(c, cookie, out.VisitorID)
		return kit.OK(c, out)
	}
}

// SearchVisitorsHandler queries the visitor directory of the key's channel.
//
//	@Summary      Search visitors
//	@Tags         events
//	@Produce      json
//	@Security     BearerAuth
//	@Param        apikey  header  string  true   "channel API key"
//	@Param        q       query   string  false  "email, phone or client uid"
//	@Param        limit   query   int     false  "page size (1..100)"
//	@Param        offset  query   int     false  "offset"
//	@Success      200     {object}  map[string]interface{}
//	@Failure      404     {object}  map[string]interface{}
//	@Router       /api/v1/events/visitors/search [get]
func SearchVisitorsHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kc, err := keyContext(c)
		if err != nil {
			return err
		}
		p, err := kit.ParsePaging(c)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		items, total, err := svc.SearchVisitors(ctx, mw.AccountID(c), kc, c.Query("q"), p.Offset, p.Limit)
		if err != nil {
			return err
		}
		return kit.List(c, items, p.Meta(len(items), total))
	}
}

// VisitorHistoryHandler lists the superseded identities of a visitor.
//
//	@Summary      Visitor identity history
//	@Tags         events
//	@Produce      json
//	@Security     BearerAuth
//	@Param        apikey  header  string  true  "channel API key"
//	@Param        id      path    string  true  "visitor id"
//	@Success      200     {object}  map[string]interface{}
//	@Failure      404     {object}  map[string]interface{}
//	@Router       /api/v1/events/visitors/{id}/history [get]
func VisitorHistoryHandler(svc *eventsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kc, err := keyContext(c)
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		items, err := svc.VisitorHistory(ctx, mw.AccountID(c), kc, c.Params("id"))
		if err != nil {
			return err
		}
		return kit.OK(c, items)
	}
}

// Guards are the middlewares the event routes are mounted behind.
type Guards struct {
	RequireAccount fiber.Handler
	APIKey         fiber.Handler
	RateLimit      fiber.Handler
}

// Mount registers the event routes under r. visitorCookie names the cookie
// carrying the visitor id.
func Mount(r fiber.Router, svc *eventsvc.Service, visitorCookie string, g Guards) {
	r.Post("/channels", g.RequireAccount, CreateChannelHandler(svc))
	r.Get("/channels", g.RequireAccount, ListChannelsHandler(svc))
	r.Post("/channels/:id/rotate-key", g.RequireAccount, RotateKeyHandler(svc))
	r.Get("/channel", g.RequireAccount, g.APIKey, GetChannelHandler(svc))

	r.Post("/receive", g.RateLimit, g.APIKey, ReceiveHandler(svc, visitorCookie))
	r.Post("/identify", g.RateLimit, g.APIKey, IdentifyHandler(svc, visitorCookie))

	r.Get("/visitors/search", g.RequireAccount, g.APIKey, SearchVisitorsHandler(svc))
	r.Get("/visitors/:id/history", g.RequireAccount, g.APIKey, VisitorHistoryHandler(svc))
}
