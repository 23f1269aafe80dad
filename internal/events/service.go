// Package events implements analytics ingestion: API key validation, the channel
// registry, visitor identity resolution and event recording.
package events

import (
	"context"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eventtrack-api/internal/logx"
)

// Membership answers tenant membership questions. Only ACTIVE memberships count;
// an empty role matches any role.
type Membership interface {
	IsMember(ctx context.Context, accountID, orgID, role string) (bool, error)
}

// CacheState is the result of a key cache lookup.
type CacheState int

const (
	CacheMiss CacheState = iota
	CacheHit
	CacheRevoked
)

// KeyCache is a read-through cache for validated API keys. Revoked keys are
// remembered as tombstones so a validation that read a key before its rotation
// committed cannot cache it again.
type KeyCache interface {
	Get(ctx context.Context, key string) (KeyContext, CacheState)
	// Set stores kc only if the key has no entry, tombstones included.
	Set(ctx context.Context, key string, kc KeyContext)
	// Revoke replaces any entry for keys with a tombstone.
	Revoke(ctx context.Context, keys ...string) error
}

// VisitorDirectory is a searchable copy of identified visitors.
type VisitorDirectory interface {
	IndexVisitor(ctx context.Context, v Visitor) error
	SearchVisitors(ctx context.Context, channelID, query string, from, size int) ([]Visitor, int, error)
}

// Service is the ingestion core. It is safe for concurrent use; all state lives in storage.
type Service struct {
	drv       dialect.Driver
	b         *entsql.DialectBuilder
	members   Membership
	cache     KeyCache
	directory VisitorDirectory
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithKeyCache(c KeyCache) Option { return func(s *Service) { s.cache = c } }

func WithVisitorDirectory(d VisitorDirectory) Option {
	return func(s *Service) { s.directory = d }
}

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(drv dialect.Driver, members Membership, opts ...Option) *Service {
	s := &Service{
		drv:     drv,
		b:       entsql.Dialect(drv.Dialect()),
		members: members,
		log:     logx.GetScope("events").Zap(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
