// Package orgs implements tenant organizations, memberships and invites.
package orgs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/accounts"
	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/logx"
)

var (
	orgColumns    = []string{"id", "name", "timezone", "status", "billing_plan", "created_at", "updated_at"}
	memberColumns = []string{"id", "org_id", "account_id", "role", "status", "created_at"}
	inviteColumns = []string{"id", "org_id", "email", "status", "expire_at", "created_at"}
)

// Accounts is the subset of the account service memberships rely on.
type Accounts interface {
	Get(ctx context.Context, id string) (accounts.Account, error)
	EnsureByEmail(ctx context.Context, c db.Conn, email string) (string, error)
}

// InviteTokens signs and verifies invite links.
type InviteTokens interface {
	Invite(inviteID, orgID, email string, ttl time.Duration) (string, error)
	Parse(token, kind string) (*accounts.Claims, error)
}

type Service struct {
	drv       dialect.Driver
	b         *entsql.DialectBuilder
	accounts  Accounts
	tokens    InviteTokens
	mailer    Mailer
	baseURL   string
	inviteTTL time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// Options carries the invite settings.
type Options struct {
	BaseURL   string
	InviteTTL time.Duration
}

func NewService(drv dialect.Driver, accts Accounts, tokens InviteTokens, mailer Mailer, opts Options) *Service {
	log := logx.GetScope("orgs").Zap()
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 72 * time.Hour
	}
	return &Service{
		drv:       drv,
		b:         entsql.Dialect(drv.Dialect()),
		accounts:  accts,
		tokens:    tokens,
		mailer:    mailer,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		inviteTTL: opts.InviteTTL,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrg creates an org with accountID as its ACTIVE OWNER.
func (s *Service) CreateOrg(ctx context.Context, accountID, name, timezone string) (Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Org{}, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	if timezone = strings.TrimSpace(timezone); timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return Org{}, fmt.Errorf("%w: unknown timezone %q", apperr.ErrInvalidInput, timezone)
	}

	now := s.now()
	org := Org{ID: uuid.NewString(), Name: name, Timezone: timezone, Status: StatusActive, BillingPlan: "FREE", CreatedAt: now, UpdatedAt: now}
	err := db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		if _, err := db.Exec(ctx, tx, s.b.Insert("orgs").
			Columns(orgColumns...).
			Values(org.ID, org.Name, org.Timezone, org.Status, org.BillingPlan, org.CreatedAt, org.UpdatedAt)); err != nil {
			return fmt.Errorf("insert org: %w", err)
		}
		return s.insertMember(ctx, tx, OrgUser{ID: uuid.NewString(), OrgID: org.ID, AccountID: accountID, Role: RoleOwner, Status: StatusActive, CreatedAt: now})
	})
	if err != nil {
		return Org{}, err
	}
	s.log.Info("org created", zap.String("org_id", org.ID), zap.String("owner", accountID))
	return org, nil
}

// FindMember returns the ACTIVE membership of accountID in orgID, or nil.
// A non-empty role must match too.
func (s *Service) FindMember(ctx context.Context, accountID, orgID, role string) (*OrgUser, error) {
	return s.findMember(ctx, s.drv, accountID, orgID, StatusActive, role)
}

// IsMember implements the membership check used by the event service.
func (s *Service) IsMember(ctx context.Context, accountID, orgID, role string) (bool, error) {
	m, err := s.FindMember(ctx, accountID, orgID, role)
	return m != nil, err
}

func (s *Service) findMember(ctx context.Context, c db.Conn, accountID, orgID, status, role string) (*OrgUser, error) {
	preds := []*entsql.Predicate{entsql.EQ("org_id", orgID), entsql.EQ("account_id", accountID)}
	if status != "" {
		preds = append(preds, entsql.EQ("status", status))
	}
	if role != "" {
		preds = append(preds, entsql.EQ("role", role))
	}
	m, err := db.One[OrgUser](ctx, c, s.b.Select(memberColumns...).
		From(s.b.Table("org_users")).
		Where(entsql.And(preds...)).
		Limit(1))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	return &m, nil
}

func (s *Service) requireOwner(ctx context.Context, accountID, orgID string) error {
	owner, err := s.FindMember(ctx, accountID, orgID, RoleOwner)
	if err != nil {
		return err
	}
	if owner == nil {
		s.log.Warn("owner check failed", zap.String("account_id", accountID), zap.String("org_id", orgID))
		return apperr.ErrUnauthorized
	}
	return nil
}

// GetOrg returns an org by id.
func (s *Service) GetOrg(ctx context.Context, orgID string) (Org, error) {
	org, err := db.One[Org](ctx, s.drv, s.b.Select(orgColumns...).
		From(s.b.Table("orgs")).
		Where(entsql.EQ("id", orgID)).
		Limit(1))
	if db.IsNoRows(err) {
		return Org{}, apperr.ErrNotFound
	}
	return org, err
}

// UpdateOrg renames an org. Only the owner may do so.
func (s *Service) UpdateOrg(ctx context.Context, accountID, orgID, name string) (Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Org{}, apperr.NewWarning(http.StatusOK, "Nothing to update")
	}
	if err := s.requireOwner(ctx, accountID, orgID); err != nil {
		return Org{}, err
	}
	org, err := s.GetOrg(ctx, orgID)
	if err != nil {
		return Org{}, err
	}
	org.Name, org.UpdatedAt = name, s.now()
	if _, err := db.Exec(ctx, s.drv, s.b.Update("orgs").
		Set("name", org.Name).
		Set("updated_at", org.UpdatedAt).
		Where(entsql.EQ("id", orgID))); err != nil {
		return Org{}, fmt.Errorf("update org: %w", err)
	}
	return org, nil
}

// TransferOwnership makes newOwnerID the org's OWNER and demotes the caller to USER.
func (s *Service) TransferOwnership(ctx context.Context, accountID, orgID, newOwnerID string) error {
	if newOwnerID == accountID {
		return apperr.NewWarning(http.StatusOK, "Account already owns the org")
	}
	if err := s.requireOwner(ctx, accountID, orgID); err != nil {
		return err
	}
	if _, err := s.accounts.Get(ctx, newOwnerID); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		if _, err := db.Exec(ctx, tx, s.b.Update("org_users").
			Set("role", RoleUser).
			Where(entsql.And(entsql.EQ("org_id", orgID), entsql.EQ("account_id", accountID)))); err != nil {
			return fmt.Errorf("demote owner: %w", err)
		}
		return s.upsertMember(ctx, tx, orgID, newOwnerID, RoleOwner)
	})
	if err != nil {
		return err
	}
	s.log.Info("org ownership transferred", zap.String("org_id", orgID), zap.String("from", accountID), zap.String("to", newOwnerID))
	return nil
}

// upsertMember activates an existing membership with role, or inserts a new one.
func (s *Service) upsertMember(ctx context.Context, c db.Conn, orgID, accountID, role string) error {
	cur, err := s.findMember(ctx, c, accountID, orgID, "", "")
	if err != nil {
		return err
	}
	if cur == nil {
		return s.insertMember(ctx, c, OrgUser{ID: uuid.NewString(), OrgID: orgID, AccountID: accountID, Role: role, Status: StatusActive, CreatedAt: s.now()})
	}
	if _, err := db.Exec(ctx, c, s.b.Update("org_users").
		Set("role", role).
		Set("status", StatusActive).
		Where(entsql.EQ("id", cur.ID))); err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	return nil
}

func (s *Service) insertMember(ctx context.Context, c db.Conn, m OrgUser) error {
	if _, err := db.Exec(ctx, c, s.b.Insert("org_users").
		Columns(memberColumns...).
		Values(m.ID, m.OrgID, m.AccountID, m.Role, m.Status, m.CreatedAt)); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
