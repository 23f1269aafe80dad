package accounts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventtrack-api/internal/apperr"
	"eventtrack-api/internal/config"
	"eventtrack-api/internal/db/dbtest"
)

var testClient = ClientInfo{IP: "203.0.113.7", UserAgent: "Mozilla/5.0 (test)"}

func testTokens(t *testing.T) *Tokens {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Algo = "HS256"
	cfg.JWT.HSSecret = "test-secret"
	cfg.JWT.Issuer = "eventtrack"
	cfg.JWT.Audience = "eventtrack-clients"
	cfg.JWT.AccessMin = 15
	cfg.JWT.RefreshDays = 7
	tokens, err := NewTokens(cfg)
	require.NoError(t, err)
	return tokens
}

func TestPassword_HashAndVerify(t *testing.T) {
	h, err := HashPassword("Secretp@ssw0rd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$"))
	assert.True(t, VerifyPassword("Secretp@ssw0rd", h))
	assert.False(t, VerifyPassword("wrong", h))
	assert.False(t, VerifyPassword("", ""))
	assert.False(t, VerifyPassword("x", "$bcrypt$whatever"))
}

func TestTokens_KindIsEnforced(t *testing.T) {
	tokens := testTokens(t)
	access, err := tokens.Access("a1", "s1")
	require.NoError(t, err)

	c, err := tokens.Parse(access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, SubjectPrefix+"a1", c.Subject)
	assert.Equal(t, "s1", c.SessionID)

	_, err = tokens.Parse(access, KindRefresh)
	assert.Error(t, err)
}

func TestTokens_InviteCarriesOrgAndEmail(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.Invite("inv1", "org1", "bob@x.com", time.Hour)
	require.NoError(t, err)

	c, err := tokens.Parse(tok, KindInvite)
	require.NoError(t, err)
	assert.Equal(t, "inv1", c.Subject)
	assert.Equal(t, "org1", c.OrgID)
	assert.Equal(t, "bob@x.com", c.Email)
}

func TestTokens_Expired(t *testing.T) {
	tokens := testTokens(t)
	tok, err := tokens.Invite("inv1", "org1", "bob@x.com", time.Minute)
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = tokens.Parse(tok, KindInvite)
	assert.Error(t, err)
}

func TestNewTokens_RejectsUnknownAlgo(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Algo = "none"
	_, err := NewTokens(cfg)
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	for _, bad := range []string{"", "alice", "Alice <alice@x.com>"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, bad)
	}
}

func TestRegisterLoginRefresh(t *testing.T) {
	drv := dbtest.Open(t)
	ctx := dbtest.Context(t)
	svc := NewService(drv, testTokens(t))

	acc, err := svc.Register(ctx, RegisterInput{Email: "Alice@x.com", Password: "Secretp@ssw0rd", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", acc.Email)

	_, err = svc.Register(ctx, RegisterInput{Email: "alice@x.com", Password: "Secretp@ssw0rd"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Login(ctx, "alice@x.com", "nope-nope", testClient)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
	_, err = svc.Login(ctx, "nobody@x.com", "Secretp@ssw0rd", testClient)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	sess, err := svc.Login(ctx, "ALICE@x.com", "Secretp@ssw0rd", testClient)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, sess.AccountID)
	assert.NotEmpty(t, sess.SessionID)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, 900, sess.ExpiresIn)

	again, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.AccountID)
	assert.Equal(t, sess.SessionID, again.SessionID)
	assert.Empty(t, again.RefreshToken)

	_, err = svc.Refresh(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	_, err := svc.Register(dbtest.Context(t), RegisterInput{Email: "a@x.com", Password: "short"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRegister_ClaimsPlaceholder(t *testing.T) {
	drv := dbtest.Open(t)
	ctx := dbtest.Context(t)
	svc := NewService(drv, testTokens(t))

	id, err := svc.EnsureByEmail(ctx, drv, "bob@x.com")
	require.NoError(t, err)
	same, err := svc.EnsureByEmail(ctx, drv, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, same)

	_, err = svc.Login(ctx, "bob@x.com", "", testClient)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	acc, err := svc.Register(ctx, RegisterInput{Email: "bob@x.com", Password: "Secretp@ssw0rd", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
}

// loggedIn registers an account and returns its first session.
func loggedIn(t *testing.T, svc *Service, email string) Session {
	t.Helper()
	ctx := dbtest.Context(t)
	_, err := svc.Register(ctx, RegisterInput{Email: email, Password: "Secretp@ssw0rd"})
	require.NoError(t, err)
	sess, err := svc.Login(ctx, email, "Secretp@ssw0rd", testClient)
	require.NoError(t, err)
	return sess
}

func TestLogin_StoresSession(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	sess := loggedIn(t, svc, "erin@x.com")

	active, err := svc.Sessions(dbtest.Context(t), sess.AccountID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sess.SessionID, active[0].ID)
	assert.Equal(t, testClient.IP, active[0].UserIP)
	assert.Equal(t, testClient.UserAgent, active[0].UserAgent)
	assert.True(t, active[0].ExpireAt.After(active[0].CreatedAt))
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	ctx := dbtest.Context(t)
	sess := loggedIn(t, svc, "frank@x.com")
	other, err := svc.Login(ctx, "frank@x.com", "Secretp@ssw0rd", testClient)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.RefreshToken))
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
	assert.ErrorIs(t, svc.Logout(ctx, sess.RefreshToken), apperr.ErrInvalidCredential)

	_, err = svc.Refresh(ctx, other.RefreshToken)
	assert.NoError(t, err)
}

func TestEndSession_OnlyOwnSessions(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	ctx := dbtest.Context(t)
	a := loggedIn(t, svc, "gina@x.com")
	b := loggedIn(t, svc, "hank@x.com")

	assert.ErrorIs(t, svc.EndSession(ctx, b.AccountID, a.SessionID), apperr.ErrInvalidCredential)
	_, err := svc.Refresh(ctx, a.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, a.AccountID, a.SessionID))
	_, err = svc.Refresh(ctx, a.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestRefresh_ExpiredSession(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	ctx := dbtest.Context(t)
	sess := loggedIn(t, svc, "ivy@x.com")

	// the token itself stays valid; only the stored session has lapsed
	svc.now = func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) }
	_, err := svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestRefresh_RequiresSessionClaim(t *testing.T) {
	tokens := testTokens(t)
	svc := NewService(dbtest.Open(t), tokens)
	sess := loggedIn(t, svc, "jay@x.com")

	bare, err := tokens.Refresh(sess.AccountID, "")
	require.NoError(t, err)
	_, err = svc.Refresh(dbtest.Context(t), bare)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
}

func TestDisableAccount(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	ctx := dbtest.Context(t)
	sess := loggedIn(t, svc, "kim@x.com")

	require.NoError(t, svc.DisableAccount(ctx, sess.AccountID))

	acc, err := svc.Get(ctx, sess.AccountID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, acc.Status)

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)
	_, err = svc.Login(ctx, "kim@x.com", "Secretp@ssw0rd", testClient)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Login(ctx, "kim@x.com", "wrong-password", testClient)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	active, err := svc.Sessions(ctx, sess.AccountID)
	require.NoError(t, err)
	assert.Empty(t, active)

	var w *apperr.Warning
	assert.ErrorAs(t, svc.DisableAccount(ctx, sess.AccountID), &w)
}

func TestUpdateAccount(t *testing.T) {
	svc := NewService(dbtest.Open(t), testTokens(t))
	ctx := dbtest.Context(t)
	sess := loggedIn(t, svc, "lee@x.com")

	acc, err := svc.UpdateAccount(ctx, sess.AccountID, UpdateInput{Name: "  Lee  "})
	require.NoError(t, err)
	assert.Equal(t, "Lee", acc.Name)

	got, err := svc.Get(ctx, sess.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Lee", got.Name)

	var w *apperr.Warning
	_, err = svc.UpdateAccount(ctx, sess.AccountID, UpdateInput{Name: " "})
	assert.ErrorAs(t, err, &w)
	_, err = svc.UpdateAccount(ctx, "missing", UpdateInput{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abéd", 4))
}
