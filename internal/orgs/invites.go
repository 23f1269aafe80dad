package orgs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
)

var errInviteTaken = errors.New("invite no longer pending")

// SendInvite creates or re-issues an invite and mails its link. The caller
// must own the target org.
func (s *Service) SendInvite(ctx context.Context, accountID string, req InviteRequest) (Invite, error) {
	var (
		inv Invite
		err error
	)
	switch r := req.(type) {
	case NewInvite:
		inv, err = s.newInvite(ctx, accountID, r)
	case ResendInvite:
		inv, err = s.resendInvite(ctx, accountID, r)
	default:
		return Invite{}, fmt.Errorf("%w: unsupported invite request %T", apperr.ErrInvalidInput, req)
	}
	if err != nil {
		return Invite{}, err
	}
	if err := s.mail(ctx, inv); err != nil {
		return Invite{}, err
	}
	return inv, nil
}

func (s *Service) newInvite(ctx context.Context, accountID string, r NewInvite) (Invite, error) {
	email, err := accounts.NormalizeEmail(r.Email)
	if err != nil {
		return Invite{}, err
	}
	if err := s.requireOwner(ctx, accountID, r.OrgID); err != nil {
		return Invite{}, err
	}
	member, err := s.memberByEmail(ctx, r.OrgID, email)
	if err != nil {
		return Invite{}, err
	}
	if member {
		return Invite{}, apperr.NewWarning(http.StatusConflict, "Account is already a member of the org")
	}

	now := s.now()
	pending, err := db.Count(ctx, s.drv, s.b.Select().Count().
		From(s.b.Table("org_invites")).
		Where(entsql.And(
			entsql.EQ("org_id", r.OrgID),
			entsql.EQ("email", email),
			entsql.EQ("status", InviteInvited),
			entsql.GT("expire_at", now),
		)))
	if err != nil {
		return Invite{}, fmt.Errorf("count pending invites: %w", err)
	}
	if pending > 0 {
		return Invite{}, apperr.NewWarning(http.StatusConflict, "An invite is already pending for this email")
	}

	inv := Invite{ID: uuid.NewString(), OrgID: r.OrgID, Email: email, Status: InviteInvited, ExpireAt: now.Add(s.inviteTTL), CreatedAt: now}
	if _, err := db.Exec(ctx, s.drv, s.b.Insert("org_invites").
		Columns(inviteColumns...).
		Values(inv.ID, inv.OrgID, inv.Email, inv.Status, inv.ExpireAt, inv.CreatedAt)); err != nil {
		return Invite{}, fmt.Errorf("insert invite: %w", err)
	}
	return inv, nil
}

func (s *Service) resendInvite(ctx context.Context, accountID string, r ResendInvite) (Invite, error) {
	inv, err := s.inviteByID(ctx, s.drv, r.InviteID)
	if err != nil {
		return Invite{}, err
	}
	if err := s.requireOwner(ctx, accountID, inv.OrgID); err != nil {
		return Invite{}, err
	}
	if inv.Status == InviteAccepted {
		return Invite{}, apperr.NewWarning(http.StatusConflict, "Invite already accepted")
	}
	inv.Status, inv.ExpireAt = InviteInvited, s.now().Add(s.inviteTTL)
	if _, err := db.Exec(ctx, s.drv, s.b.Update("org_invites").
		Set("status", inv.Status).
		Set("expire_at", inv.ExpireAt).
		Where(entsql.EQ("id", inv.ID))); err != nil {
		return Invite{}, fmt.Errorf("refresh invite: %w", err)
	}
	return inv, nil
}

func (s *Service) mail(ctx context.Context, inv Invite) error {
	org, err := s.GetOrg(ctx, inv.OrgID)
	if err != nil {
		return err
	}
	token, err := s.tokens.Invite(inv.ID, inv.OrgID, inv.Email, inv.ExpireAt.Sub(s.now()))
	if err != nil {
		return fmt.Errorf("sign invite: %w", err)
	}
	q := url.Values{"email": {inv.Email}, "token": {token}}
	link := s.baseURL + "/api/v1/orgs/invites/accept?" + q.Encode()
	if err := s.mailer.SendInvite(ctx, InviteMail{To: inv.Email, OrgID: org.ID, OrgName: org.Name, Link: link}); err != nil {
		return fmt.Errorf("send invite mail: %w", err)
	}
	s.log.Info("invite sent", zap.String("invite_id", inv.ID), zap.String("org_id", inv.OrgID))
	return nil
}

// AcceptInvite turns a valid invite link into an ACTIVE USER membership,
// creating a placeholder account for the email when needed.
func (s *Service) AcceptInvite(ctx context.Context, email, token string) (Accepted, error) {
	claims, err := s.tokens.Parse(token, accounts.KindInvite)
	if err != nil {
		return Accepted{}, apperr.ErrInvalidCredential
	}
	email, err = accounts.NormalizeEmail(email)
	if err != nil {
		return Accepted{}, err
	}
	inv, err := s.inviteByID(ctx, s.drv, claims.Subject)
	if err != nil {
		return Accepted{}, err
	}
	if inv.OrgID != claims.OrgID || inv.Email != claims.Email {
		return Accepted{}, apperr.ErrInvalidCredential
	}
	if inv.Email != email {
		return Accepted{}, apperr.ErrUnauthorized
	}
	if inv.Status == InviteAccepted {
		return Accepted{}, apperr.NewWarning(http.StatusOK, "Invite already accepted")
	}
	if inv.Status != InviteInvited || !inv.ExpireAt.After(s.now()) {
		return Accepted{}, apperr.ErrNotFound
	}

	out := Accepted{OrgID: inv.OrgID}
	err = db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		n, err := db.Exec(ctx, tx, s.b.Update("org_invites").
			Set("status", InviteAccepted).
			Where(entsql.And(entsql.EQ("id", inv.ID), entsql.EQ("status", InviteInvited))))
		if err != nil {
			return fmt.Errorf("mark invite accepted: %w", err)
		}
		if n == 0 {
			return errInviteTaken
		}
		if out.AccountID, err = s.accounts.EnsureByEmail(ctx, tx, email); err != nil {
			return err
		}
		return s.upsertMember(ctx, tx, inv.OrgID, out.AccountID, RoleUser)
	})
	if errors.Is(err, errInviteTaken) {
		return Accepted{}, apperr.NewWarning(http.StatusOK, "Invite already accepted")
	}
	if err != nil {
		return Accepted{}, err
	}
	s.log.Info("invite accepted", zap.String("invite_id", inv.ID), zap.String("account_id", out.AccountID))
	return out, nil
}

func (s *Service) inviteByID(ctx context.Context, c db.Conn, id string) (Invite, error) {
	inv, err := db.One[Invite](ctx, c, s.b.Select(inviteColumns...).
		From(s.b.Table("org_invites")).
		Where(entsql.EQ("id", id)).
		Limit(1))
	if db.IsNoRows(err) {
		return Invite{}, apperr.ErrNotFound
	}
	if err != nil {
		return Invite{}, fmt.Errorf("lookup invite: %w", err)
	}
	return inv, nil
}

func (s *Service) memberByEmail(ctx context.Context, orgID, email string) (bool, error) {
	ids, err := db.All[string](ctx, s.drv, s.b.Select("id").
		From(s.b.Table("accounts")).
		Where(entsql.EQ("email", email)).
		Limit(1))
	if err != nil {
		return false, fmt.Errorf("lookup account: %w", err)
	}
	if len(ids) == 0 {
		return false, nil
	}
	m, err := s.FindMember(ctx, ids[0], orgID, "")
	return m != nil, err
}
