// Package orgs exposes org management and invites over HTTP.
package orgs

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/httpx/kit"
	"eventtrack-api/internal/httpx/mw"
	orgsvc "eventtrack-api/internal/orgs"
)

func withTimeout(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context(), 3*time.Second)
}

// CreateOrgHandler creates an org owned by the caller.
//
//	@Summary      Create org
//	@Tags         orgs
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        body  body   orgs.CreateOrgRequest  true  "org"
//	@Success      201   {object}  map[string]interface{}
//	@Failure      400   {object}  map[string]interface{}
//	@Failure      401   {object}  map[string]interface{}
//	@Router       /api/v1/orgs [post]
func CreateOrgHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateOrgRequest
		if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			return kit.BadRequest("name required", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		org, err := svc.CreateOrg(ctx, mw.AccountID(c), req.Name, req.Timezone)
		if err != nil {
			return err
		}
		return kit.Created(c, org)
	}
}

// GetOrgHandler returns an org to its ACTIVE members.
//
//	@Summary      Get org
//	@Tags         orgs
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id   path  string  true  "org id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      403  {object}  map[string]interface{}
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /api/v1/orgs/{id} [get]
func GetOrgHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := withTimeout(c)
		defer cancel()

		ok, err := svc.IsMember(ctx, mw.AccountID(c), c.Params("id"), "")
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrUnauthorized
		}
		org, err := svc.GetOrg(ctx, c.Params("id"))
		if err != nil {
			return err
		}
		return kit.OK(c, org)
	}
}

// UpdateOrgHandler renames an org.
//
//	@Summary      Update org
//	@Description  Owner only. An empty name is a Warning no-op.
//	@Tags         orgs
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id    path  string                 true  "org id"
//	@Param        body  body  orgs.UpdateOrgRequest  true  "changes"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Router       /api/v1/orgs/{id} [patch]
func UpdateOrgHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateOrgRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.BadRequest("invalid body", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		org, err := svc.UpdateOrg(ctx, mw.AccountID(c), c.Params("id"), req.Name)
		if err != nil {
			return err
		}
		return kit.OK(c, org)
	}
}

// TransferOwnershipHandler makes another account the org owner.
//
//	@Summary      Transfer ownership
//	@Tags         orgs
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id    path  string                          true  "org id"
//	@Param        body  body  orgs.TransferOwnershipRequest  true  "new owner"
//	@Success      200   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Failure      404   {object}  map[string]interface{}
//	@Router       /api/v1/orgs/{id}/owner [post]
func TransferOwnershipHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TransferOwnershipRequest
		if err := c.BodyParser(&req); err != nil || req.AccountID == "" {
			return kit.BadRequest("account_id required", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		if err := svc.TransferOwnership(ctx, mw.AccountID(c), c.Params("id"), req.AccountID); err != nil {
			return err
		}
		return kit.OK(c, fiber.Map{"org_id": c.Params("id"), "owner_id": req.AccountID})
	}
}

// InviteHandler invites an email address into the org.
//
//	@Summary      Invite member
//	@Tags         orgs
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        body  body  orgs.InviteRequest  true  "org and invitee"
//	@Success      201   {object}  map[string]interface{}
//	@Failure      403   {object}  map[string]interface{}
//	@Failure      409   {object}  map[string]interface{}
//	@Router       /api/v1/orgs/invites [post]
func InviteHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req InviteRequest
		if err := c.BodyParser(&req); err != nil || req.OrgID == "" || strings.TrimSpace(req.Email) == "" {
			return kit.BadRequest("org_id and email required", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		inv, err := svc.SendInvite(ctx, mw.AccountID(c), orgsvc.NewInvite{OrgID: req.OrgID, Email: req.Email})
		if err != nil {
			return err
		}
		return kit.Created(c, inv)
	}
}

// ResendInviteHandler re-issues an invite link.
//
//	@Summary      Resend invite
//	@Tags         orgs
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id   path  string  true  "invite id"
//	@Success      200  {object}  map[string]interface{}
//	@Failure      403  {object}  map[string]interface{}
//	@Failure      404  {object}  map[string]interface{}
//	@Router       /api/v1/orgs/invites/{id}/resend [post]
func ResendInviteHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := withTimeout(c)
		defer cancel()

		inv, err := svc.SendInvite(ctx, mw.AccountID(c), orgsvc.ResendInvite{InviteID: c.Params("id")})
		if err != nil {
			return err
		}
		return kit.OK(c, inv)
	}
}

// AcceptInviteHandler redeems the link sent by mail.
//
//	@Summary      Accept invite
//	@Tags         orgs
//	@Produce      json
//	@Param        email  query  string  true  "invited email"
//	@Param        token  query  string  true  "invite token"
//	@Success      200    {object}  map[string]interface{}
//	@Failure      401    {object}  map[string]interface{}
//	@Failure      404    {object}  map[string]interface{}
//	@Router       /api/v1/orgs/invites/accept [get]
func AcceptInviteHandler(svc *orgsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, token := c.Query("email"), c.Query("token")
		if email == "" || token == "" {
			return kit.BadRequest("email and token required", nil)
		}
		ctx, cancel := withTimeout(c)
		defer cancel()

		acc, err := svc.AcceptInvite(ctx, email, token)
		if err != nil {
			return err
		}
		return kit.OK(c, acc)
	}
}

// Mount registers the org routes under r. Accepting an invite needs no session.
func Mount(r fiber.Router, svc *orgsvc.Service, requireAccount fiber.Handler) {
	r.Get("/invites/accept", AcceptInviteHandler(svc))
	r.Post("/invites", requireAccount, InviteHandler(svc))
	r.Post("/invites/:id/resend", requireAccount, ResendInviteHandler(svc))
	r.Post("/", requireAccount, CreateOrgHandler(svc))
	r.Get("/:id", requireAccount, GetOrgHandler(svc))
	r.Patch("/:id", requireAccount, UpdateOrgHandler(svc))
	r.Post("/:id/owner", requireAccount, TransferOwnershipHandler(svc))
}
