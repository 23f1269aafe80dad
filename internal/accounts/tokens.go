package accounts

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventtrack-api/internal/config"
)

// Token kinds. A token is only accepted where its kind is expected.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
	KindInvite  = "invite"
)

// SubjectPrefix namespaces account ids in the JWT subject.
const SubjectPrefix = "account:"

// Claims are the JWT claims issued by this service.
type Claims struct {
	Kind      string `json:"kind"`
	SessionID string `json:"sid,omitempty"`
	Email     string `json:"email,omitempty"`
	OrgID     string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies JWTs with the configured algorithm.
type Tokens struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens loads signing keys once. RS256 without both PEMs falls back to HS256.
func NewTokens(cfg *config.Config) (*Tokens, error) {
	t := &Tokens{
		issuer:     cfg.JWT.Issuer,
		audience:   cfg.JWT.Audience,
		accessTTL:  time.Duration(cfg.JWT.AccessMin) * time.Minute,
		refreshTTL: time.Duration(cfg.JWT.RefreshDays) * 24 * time.Hour,
		now:        func() time.Time { return time.Now().UTC() },
	}
	hs := func() (*Tokens, error) {
		if cfg.JWT.HSSecret == "" {
			return nil, errors.New("JWT_HS_SECRET is empty")
		}
		t.method = jwt.SigningMethodHS256
		t.signKey, t.verifyKey = []byte(cfg.JWT.HSSecret), []byte(cfg.JWT.HSSecret)
		return t, nil
	}
	switch cfg.JWT.Algo {
	case "", "HS256":
		return hs()
	case "RS256":
		if cfg.JWT.RSPrivateKey == "" || cfg.JWT.RSPublicKey == "" {
			return hs()
		}
		priv, err := parseRSAPrivateKey([]byte(cfg.JWT.RSPrivateKey))
		if err != nil {
			return nil, err
		}
		pub, err := parseRSAPublicKey([]byte(cfg.JWT.RSPublicKey))
		if err != nil {
			return nil, err
		}
		t.method, t.signKey, t.verifyKey = jwt.SigningMethodRS256, priv, pub
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported JWT_ALGO %q", cfg.JWT.Algo)
	}
}

func parseRSAPrivateKey(b []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid RSA private PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

func parseRSAPublicKey(b []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid RSA public PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}

func (t *Tokens) sign(c Claims, subject string, ttl time.Duration) (string, error) {
	now := t.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{t.audience},
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(t.method, &c).SignedString(t.signKey)
}

// Access issues a short-lived access token for an account's session.
func (t *Tokens) Access(accountID, sessionID string) (string, error) {
	return t.sign(Claims{Kind: KindAccess, SessionID: sessionID}, SubjectPrefix+accountID, t.accessTTL)
}

// Refresh issues a long-lived refresh token bound to a session.
func (t *Tokens) Refresh(accountID, sessionID string) (string, error) {
	return t.sign(Claims{Kind: KindRefresh, SessionID: sessionID}, SubjectPrefix+accountID, t.refreshTTL)
}

// Invite issues a one-time token bound to an invite, its org and the invited email.
func (t *Tokens) Invite(inviteID, orgID, email string, ttl time.Duration) (string, error) {
	return t.sign(Claims{Kind: KindInvite, Email: email, OrgID: orgID}, inviteID, ttl)
}

// AccessTTL is the lifetime of access tokens.
func (t *Tokens) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL is the lifetime of refresh tokens.
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// Parse verifies signature, registered claims and kind.
func (t *Tokens) Parse(token, kind string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{t.method.Alg()}), jwt.WithTimeFunc(t.now)}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}
	var c Claims
	tok, err := jwt.NewParser(opts...).ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return t.verifyKey, nil })
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("token kind %q, want %q", c.Kind, kind)
	}
	return &c, nil
}
