package config

import (
	"strconv"

	agollo "github.com/apolloconfig/agollo/v4"
	apconf "github.com/apolloconfig/agollo/v4/env/config"
	"github.com/apolloconfig/agollo/v4/storage"
	"go.uber.org/zap"
)

// overrideFromApollo starts the Apollo client, applies the initial overrides and
// keeps the store updated on namespace changes.
func overrideFromApollo(cfg *Config, store *Store) (func(), error) {
	if cfg.Apollo.Addrs == "" || cfg.Apollo.AppID == "" {
		configLogger.Warn("apollo: missing APOLLO_ADDRS or APOLLO_APP_ID; skip")
		return nil, nil
	}

	ns := cfg.Apollo.Namespace
	if ns == "" {
		ns = "application"
	}

	appCfg := &apconf.AppConfig{
		AppID:         cfg.Apollo.AppID,
		Cluster:       cfg.Apollo.Cluster,
		NamespaceName: ns,
		IP:            cfg.Apollo.Addrs,
		Secret:        cfg.Apollo.AccessKey,
	}

	client, err := agollo.StartWithConfig(func() (*apconf.AppConfig, error) { return appCfg, nil })
	if err != nil {
		return nil, err
	}

	applyApolloOverrides(cacheLookup(client, ns), cfg)
	_ = store.UpdateValidated(cfg, map[string]bool{"apollo.init": true})

	client.AddChangeListener(&changeListener{ns: ns, client: client, store: store})

	// agollo v4 exposes no Stop.
	return func() {}, nil
}

// lookupFunc returns the raw string value for an Apollo key.
type lookupFunc func(key string) (string, bool)

func cacheLookup(client agollo.Client, ns string) lookupFunc {
	return func(key string) (string, bool) {
		cache := client.GetConfigCache(ns)
		if cache == nil {
			return "", false
		}
		v, err := cache.Get(key)
		if err != nil {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
}

type override struct {
	key   string
	apply func(cfg *Config, v string)
	// empty values are only applied for secrets that may be cleared on purpose
	allowEmpty bool
}

func str(set func(*Config, string)) func(*Config, string) { return set }

func num(set func(*Config, int)) func(*Config, string) {
	return func(cfg *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			set(cfg, n)
		}
	}
}

var overrides = []override{
	{key: "app.env", apply: str(func(c *Config, v string) { c.AppEnv = v })},
	{key: "server.addr", apply: str(func(c *Config, v string) { c.Server.Addr = v })},
	{key: "log.level", apply: str(func(c *Config, v string) { c.Log.Level = v })},
	{key: "log.format", apply: str(func(c *Config, v string) { c.Log.Format = v })},
	{key: "db.url", apply: str(func(c *Config, v string) { c.DB.URL = v })},
	{key: "db.max_open", apply: num(func(c *Config, n int) { c.DB.MaxOpenConns = n })},
	{key: "db.max_idle", apply: num(func(c *Config, n int) { c.DB.MaxIdleConns = n })},
	{key: "redis.addr", apply: str(func(c *Config, v string) { c.Redis.Addr = v })},
	{key: "redis.password", apply: str(func(c *Config, v string) { c.Redis.Password = v }), allowEmpty: true},
	{key: "redis.db", apply: num(func(c *Config, n int) { c.Redis.DB = n })},
	{key: "mq.url", apply: str(func(c *Config, v string) { c.MQ.URL = v })},
	{key: "es.addrs", apply: str(func(c *Config, v string) { c.ES.Addrs = v })},
	{key: "es.username", apply: str(func(c *Config, v string) { c.ES.Username = v }), allowEmpty: true},
	{key: "es.password", apply: str(func(c *Config, v string) { c.ES.Password = v }), allowEmpty: true},
	{key: "events.rl_window_sec", apply: num(func(c *Config, n int) { c.Events.RateLimitWindowSec = n })},
	{key: "events.rl_max", apply: num(func(c *Config, n int) { c.Events.RateLimitMax = n })},
	{key: "events.key_cache_ttl_sec", apply: num(func(c *Config, n int) { c.Events.KeyCacheTTLSec = n })},
	{key: "invite.base_url", apply: str(func(c *Config, v string) { c.Invite.BaseURL = v })},
	{key: "invite.expire_hours", apply: num(func(c *Config, n int) { c.Invite.ExpireHours = n })},
}

func applyApolloOverrides(lookup lookupFunc, cfg *Config) {
	for _, o := range overrides {
		v, ok := lookup(o.key)
		if !ok || (v == "" && !o.allowEmpty) {
			continue
		}
		o.apply(cfg, v)
	}
}

type changeListener struct {
	ns     string
	client agollo.Client
	store  *Store
}

func (c *changeListener) OnChange(e *storage.ChangeEvent) {
	configLogger.Info("apollo change", zap.String("namespace", e.Namespace), zap.Int("changes", len(e.Changes)))
	next := cloneConfig(c.store.Get())
	applyApolloOverrides(cacheLookup(c.client, c.ns), next)
	changed := map[string]bool{}
	for k := range e.Changes {
		changed[k] = true
	}
	if !c.store.UpdateValidated(next, changed) {
		configLogger.Warn("apollo change rejected by validator", zap.String("namespace", e.Namespace))
	}
}

// OnNewestChange is required by storage.ChangeListener; full snapshots are
// not used, OnChange re-reads the cache.
func (c *changeListener) OnNewestChange(e *storage.FullChangeEvent) {}
