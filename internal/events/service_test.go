package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eventtrack-api/internal/db"
	"eventtrack-api/internal/db/dbtest"
)

type fakeMembers map[string]string

func (m fakeMembers) add(accountID, orgID, role string) { m[accountID+"|"+orgID] = role }

func (m fakeMembers) IsMember(_ context.Context, accountID, orgID, role string) (bool, error) {
	r, ok := m[accountID+"|"+orgID]
	return ok && (role == "" || role == r), nil
}

type fakeCache struct {
	mu        sync.Mutex
	items     map[string]KeyContext
	revoked   map[string]bool
	revokeErr error
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]KeyContext{}, revoked: map[string]bool{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (KeyContext, CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revoked[key] {
		return KeyContext{}, CacheRevoked
	}
	if kc, ok := c.items[key]; ok {
		return kc, CacheHit
	}
	return KeyContext{}, CacheMiss
}

func (c *fakeCache) Set(_ context.Context, key string, kc KeyContext) {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok || c.revoked[key] {
		return
	}
	c.items[key] = kc
}

func (c *fakeCache) Revoke(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revokeErr != nil {
		return c.revokeErr
	}
	for _, k := range keys {
		delete(c.items, k)
		c.revoked[k] = true
	}
	return nil
}

type fakeDirectory struct {
	indexed []Visitor
}

func (d *fakeDirectory) IndexVisitor(_ context.Context, v Visitor) error {
	d.indexed = append(d.indexed, v)
	return nil
}

func (d *fakeDirectory) SearchVisitors(_ context.Context, channelID, query string, from, size int) ([]Visitor, int, error) {
	var out []Visitor
	for _, v := range d.indexed {
		if v.ChannelID == channelID && (v.Email == query || v.Phone == query || v.ClientUID == query) {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

type fixture struct {
	svc     *Service
	drv     *entsql.Driver
	members fakeMembers
	cache   *fakeCache
	dir     *fakeDirectory
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		drv:     dbtest.Open(t),
		members: fakeMembers{},
		cache:   newFakeCache(),
		dir:     &fakeDirectory{},
		ctx:     dbtest.Context(t),
	}
	f.svc = NewService(f.drv, f.members,
		WithKeyCache(f.cache),
		WithVisitorDirectory(f.dir),
		WithLogger(zap.NewNop()),
	)
	return f
}

// channel creates a channel owned by a fresh OWNER account and returns its key context.
func (f *fixture) channel(t *testing.T) (accountID string, kc KeyContext, key string) {
	t.Helper()
	accountID, orgID := uuid.NewString(), uuid.NewString()
	f.members.add(accountID, orgID, RoleOwner)
	created, err := f.svc.CreateChannel(f.ctx, orgID, accountID, "web")
	require.NoError(t, err)
	return accountID, KeyContext{KeyID: created.APIKey, ChannelID: created.ChannelID, OrgID: orgID}, created.APIKey
}

func (f *fixture) count(t *testing.T, table, col, val string) int {
	t.Helper()
	n, err := db.Count(f.ctx, f.drv, entsql.Dialect(dialect.SQLite).
		Select().Count().From(entsql.Table(table)).
		Where(entsql.EQ(col, val)))
	require.NoError(t, err)
	return n
}

func (f *fixture) visitor(t *testing.T, kc KeyContext, id string) Visitor {
	t.Helper()
	v, err := f.svc.visitorInChannel(f.ctx, f.drv, id, kc.ChannelID)
	require.NoError(t, err)
	return v
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
