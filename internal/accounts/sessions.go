package accounts

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/db"
)

// Session statuses.
const (
	SessionActive   = "ACTIVE"
	SessionInactive = "INACTIVE"
)

const maxSessionUA = 512

var sessionColumns = []string{"id", "account_id", "status", "user_ip", "user_agent", "created_at", "updated_at", "expire_at"}

// ClientInfo describes where a login came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// UserSession is a server-side login. Refresh tokens carry its id and are
// honored only while it is ACTIVE.
type UserSession struct {
	ID        string    `sql:"id"`
	AccountID string    `sql:"account_id"`
	Status    string    `sql:"status"`
	UserIP    string    `sql:"user_ip"`
	UserAgent string    `sql:"user_agent"`
	CreatedAt time.Time `sql:"created_at"`
	UpdatedAt time.Time `sql:"updated_at"`
	ExpireAt  time.Time `sql:"expire_at"`
}

func (s *Service) openSession(ctx context.Context, accountID string, client ClientInfo) (UserSession, error) {
	now := s.now()
	us := UserSession{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Status:    SessionActive,
		UserIP:    client.IP,
		UserAgent: truncate(client.UserAgent, maxSessionUA),
		CreatedAt: now,
		UpdatedAt: now,
		ExpireAt:  now.Add(s.tokens.RefreshTTL()),
	}
	if _, err := db.Exec(ctx, s.drv, s.b.Insert("user_sessions").
		Columns(sessionColumns...).
		Values(us.ID, us.AccountID, us.Status, us.UserIP, us.UserAgent, us.CreatedAt, us.UpdatedAt, us.ExpireAt)); err != nil {
		return UserSession{}, fmt.Errorf("insert session: %w", err)
	}
	return us, nil
}

func (s *Service) sessionByID(ctx context.Context, c db.Conn, id string) (UserSession, error) {
	return db.One[UserSession](ctx, c, s.b.Select(sessionColumns...).
		From(s.b.Table("user_sessions")).
		Where(entsql.EQ("id", id)).
		Limit(1))
}

// Sessions lists the account's ACTIVE sessions, newest first.
func (s *Service) Sessions(ctx context.Context, accountID string) ([]UserSession, error) {
	return db.All[UserSession](ctx, s.drv, s.b.Select(sessionColumns...).
		From(s.b.Table("user_sessions")).
		Where(entsql.And(entsql.EQ("account_id", accountID), entsql.EQ("status", SessionActive))).
		OrderBy(entsql.Desc("created_at")))
}

// EndSession marks one of the account's sessions INACTIVE. Ending an unknown,
// foreign or already ended session fails with apperr.ErrInvalidCredential.
func (s *Service) EndSession(ctx context.Context, accountID, sessionID string) error {
	n, err := s.endSessions(ctx, s.drv, entsql.And(entsql.EQ("id", sessionID), entsql.EQ("account_id", accountID)))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrInvalidCredential
	}
	s.log.Info("session ended", zap.String("account_id", accountID), zap.String("session_id", sessionID))
	return nil
}

func (s *Service) endSessions(ctx context.Context, c db.Conn, where *entsql.Predicate) (int64, error) {
	n, err := db.Exec(ctx, c, s.b.Update("user_sessions").
		Set("status", SessionInactive).
		Set("updated_at", s.now()).
		Where(entsql.And(where, entsql.EQ("status", SessionActive))))
	if err != nil {
		return 0, fmt.Errorf("end sessions: %w", err)
	}
	return n, nil
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	for max > 0 && !utf8.RuneStart(v[max]) {
		max--
	}
	return v[:max]
}
