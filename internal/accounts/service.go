// Package accounts implements account registration, password login and session tokens.
package accounts

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
	"eventtrack-api/internal/logx"
)

const minPasswordLen = 8

// Account statuses. INACTIVE accounts can neither log in nor refresh.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

var accountColumns = []string{"id", "email", "name", "password_hash", "status", "created_at"}

// Account is a login identity. An empty PasswordHash marks a placeholder
// created by an invite that can be claimed by registering.
type Account struct {
	ID           string    `sql:"id" json:"id"`
	Email        string    `sql:"email" json:"email"`
	Name         string    `sql:"name" json:"name"`
	PasswordHash string    `sql:"password_hash" json:"-"`
	Status       string    `sql:"status" json:"status"`
	CreatedAt    time.Time `sql:"created_at" json:"created_at"`
}

// Session is the token pair handed out on login.
type Session struct {
	AccountID    string
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type Service struct {
	drv    dialect.Driver
	b      *entsql.DialectBuilder
	tokens *Tokens
	log    *zap.Logger
	now    func() time.Time
}

func NewService(drv dialect.Driver, tokens *Tokens) *Service {
	return &Service{
		drv:    drv,
		b:      entsql.Dialect(drv.Dialect()),
		tokens: tokens,
		log:    logx.GetScope("accounts").Zap(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", apperr.ErrInvalidInput)
	}
	return email, nil
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates an account, or claims the placeholder an accepted invite left behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return Account{}, err
	}
	if len(in.Password) < minPasswordLen {
		return Account{}, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}

	var acc Account
	err = db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		cur, err := s.byEmail(ctx, tx, email)
		switch {
		case err == nil && cur.PasswordHash != "":
			return apperr.ErrConflict
		case err == nil:
			cur.Name, cur.PasswordHash = strings.TrimSpace(in.Name), hash
			if _, err := db.Exec(ctx, tx, s.b.Update("accounts").
				Set("name", cur.Name).
				Set("password_hash", cur.PasswordHash).
				Where(entsql.EQ("id", cur.ID))); err != nil {
				return fmt.Errorf("claim account: %w", err)
			}
			acc = cur
			return nil
		case db.IsNoRows(err):
			acc = Account{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(in.Name), PasswordHash: hash, Status: StatusActive, CreatedAt: s.now()}
			return s.insert(ctx, tx, acc)
		default:
			return fmt.Errorf("lookup account: %w", err)
		}
	})
	if err != nil {
		return Account{}, err
	}
	s.log.Info("account registered", zap.String("account_id", acc.ID))
	return acc, nil
}

// Login checks the password, opens a server-side session and issues tokens
// bound to it. Unknown email and wrong password are indistinguishable to the
// caller; a disabled account with the right password is refused.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	acc, err := s.byEmail(ctx, s.drv, email)
	if db.IsNoRows(err) {
		return Session{}, apperr.ErrInvalidCredential
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup account: %w", err)
	}
	if !VerifyPassword(password, acc.PasswordHash) {
		return Session{}, apperr.ErrInvalidCredential
	}
	if acc.Status != StatusActive {
		s.log.Warn("login to disabled account", zap.String("account_id", acc.ID))
		return Session{}, fmt.Errorf("%w: account disabled", apperr.ErrUnauthorized)
	}

	us, err := s.openSession(ctx, acc.ID, client)
	if err != nil {
		return Session{}, err
	}
	return s.session(acc.ID, us.ID, true)
}

// Refresh mints a new access token while the refresh token's session is
// ACTIVE and unexpired and its account is ACTIVE.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	id, sid, err := s.refreshSubject(refreshToken)
	if err != nil {
		return Session{}, err
	}
	us, err := s.sessionByID(ctx, s.drv, sid)
	if db.IsNoRows(err) {
		return Session{}, apperr.ErrInvalidCredential
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if us.AccountID != id || us.Status != SessionActive || !s.now().Before(us.ExpireAt) {
		s.log.Warn("refresh on inactive session", zap.String("account_id", id), zap.String("session_id", sid))
		return Session{}, apperr.ErrInvalidCredential
	}
	acc, err := s.Get(ctx, id)
	if err != nil || acc.Status != StatusActive {
		return Session{}, apperr.ErrInvalidCredential
	}
	return s.session(id, sid, false)
}

// Logout ends the session named by a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	id, sid, err := s.refreshSubject(refreshToken)
	if err != nil {
		return err
	}
	return s.EndSession(ctx, id, sid)
}

func (s *Service) refreshSubject(refreshToken string) (accountID, sessionID string, err error) {
	claims, err := s.tokens.Parse(refreshToken, KindRefresh)
	if err != nil {
		return "", "", apperr.ErrInvalidCredential
	}
	id, ok := strings.CutPrefix(claims.Subject, SubjectPrefix)
	if !ok || id == "" || claims.SessionID == "" {
		return "", "", apperr.ErrInvalidCredential
	}
	return id, claims.SessionID, nil
}

func (s *Service) session(accountID, sessionID string, withRefresh bool) (Session, error) {
	access, err := s.tokens.Access(accountID, sessionID)
	if err != nil {
		return Session{}, fmt.Errorf("sign access: %w", err)
	}
	out := Session{AccountID: accountID, SessionID: sessionID, AccessToken: access, ExpiresIn: int(s.tokens.AccessTTL().Seconds())}
	if withRefresh {
		if out.RefreshToken, err = s.tokens.Refresh(accountID, sessionID); err != nil {
			return Session{}, fmt.Errorf("sign refresh: %w", err)
		}
	}
	return out, nil
}

// UpdateInput carries the editable account fields. Empty means unchanged.
type UpdateInput struct {
	Name string
}

// UpdateAccount changes the account's profile.
func (s *Service) UpdateAccount(ctx context.Context, id string, in UpdateInput) (Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Account{}, apperr.NewWarning(http.StatusOK, "Nothing to update")
	}
	acc, err := s.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if _, err := db.Exec(ctx, s.drv, s.b.Update("accounts").
		Set("name", name).
		Where(entsql.EQ("id", id))); err != nil {
		return Account{}, fmt.Errorf("update account: %w", err)
	}
	acc.Name = name
	return acc, nil
}

// DisableAccount marks the account INACTIVE and ends all of its sessions.
// Access tokens already issued stay valid until they expire.
func (s *Service) DisableAccount(ctx context.Context, id string) error {
	acc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if acc.Status == StatusInactive {
		return apperr.NewWarning(http.StatusOK, "Account already disabled")
	}
	var ended int64
	err = db.WithTx(ctx, s.drv, func(tx dialect.Tx) error {
		if _, err := db.Exec(ctx, tx, s.b.Update("accounts").
			Set("status", StatusInactive).
			Where(entsql.EQ("id", id))); err != nil {
			return fmt.Errorf("disable account: %w", err)
		}
		n, err := s.endSessions(ctx, tx, entsql.EQ("account_id", id))
		if err != nil {
			return err
		}
		ended = n
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("account disabled", zap.String("account_id", id), zap.Int64("sessions_ended", ended))
	return nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	acc, err := db.One[Account](ctx, s.drv, s.b.Select(accountColumns...).
		From(s.b.Table("accounts")).
		Where(entsql.EQ("id", id)).
		Limit(1))
	if db.IsNoRows(err) {
		return Account{}, apperr.ErrNotFound
	}
	return acc, err
}

// EnsureByEmail returns the id of the account with email, creating a
// placeholder inside c when there is none.
func (s *Service) EnsureByEmail(ctx context.Context, c db.Conn, email string) (string, error) {
	acc, err := s.byEmail(ctx, c, email)
	if err == nil {
		return acc.ID, nil
	}
	if !db.IsNoRows(err) {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	acc = Account{ID: uuid.NewString(), Email: email, Status: StatusActive, CreatedAt: s.now()}
	if err := s.insert(ctx, c, acc); err != nil {
		return "", err
	}
	return acc.ID, nil
}

func (s *Service) byEmail(ctx context.Context, c db.Conn, email string) (Account, error) {
	return db.One[Account](ctx, c, s.b.Select(accountColumns...).
		From(s.b.Table("accounts")).
		Where(entsql.EQ("email", email)).
		Limit(1))
}

func (s *Service) insert(ctx context.Context, c db.Conn, a Account) error {
	if _, err := db.Exec(ctx, c, s.b.Insert("accounts").
		Columns(accountColumns...).
		Values(a.ID, a.Email, a.Name, a.PasswordHash, a.Status, a.CreatedAt)); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}
