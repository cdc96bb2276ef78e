// Package cache implements dispatch.ResultCache, keeping the results of configured read-only methods
// for a short time either in memory or in Redis.
package cache

import (
	"context"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/dispatch"
	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Cache is a dispatch.ResultCache that also needs to be closed.
type Cache interface {
	dispatch.ResultCache
	Close() error
}

// Store is the storage behind a Cache. Keys are already filtered by method.
type Store interface {
	Get(ctx context.Context, key string) (ldvalue.Value, bool, error)
	Put(ctx context.Context, key string, value ldvalue.Value, ttl time.Duration) error
	Close() error
}

// methodCache decides which requests are cacheable and builds their keys.
type methodCache struct {
	methods map[string]struct{}
	ttl     time.Duration
	store   Store
	loggers ldlog.Loggers
}

// NewCache creates a Cache for the given methods.
func NewCache(methods []string, ttl time.Duration, store Store, loggers ldlog.Loggers) Cache {
	m := &methodCache{
		methods: make(map[string]struct{}, len(methods)),
		ttl:     ttl,
		store:   store,
		loggers: loggers,
	}
	for _, method := range methods {
		m.methods[method] = struct{}{}
	}
	return m
}

// ConfigureCache creates the Cache described by the configuration, or returns nil if caching is not
// enabled. It assumes the configuration has already been validated.
func ConfigureCache(allConfig config.Config, loggers ldlog.Loggers) (Cache, error) {
	if !allConfig.IsCacheEnabled() {
		return nil, nil
	}
	methods := allConfig.Cache.Methods.Values()
	ttl := allConfig.Cache.TTL.GetOrElse(config.DefaultCacheTTL)

	var store Store
	if allConfig.Cache.UseRedis {
		s, err := NewRedisStore(allConfig.Redis, loggers)
		if err != nil {
			return nil, err
		}
		store = s
		loggers.Infof("Caching results of %v in Redis for %s", methods, ttl)
	} else {
		store = NewMemoryStore(allConfig.Cache.Size.GetOrElse(config.DefaultCacheSize), ttl)
		loggers.Infof("Caching results of %v in memory for %s", methods, ttl)
	}
	return NewCache(methods, ttl, store, loggers), nil
}

func (m *methodCache) Get(ctx context.Context, req jsonrpc.Request) (ldvalue.Value, bool) {
	key, ok := m.keyFor(req)
	if !ok {
		return ldvalue.Null(), false
	}
	value, found, err := m.store.Get(ctx, key)
	if err != nil {
		m.loggers.Warnf("Result cache lookup for %q failed: %s", req.Method, err)
		return ldvalue.Null(), false
	}
	if found && m.loggers.IsDebugEnabled() {
		m.loggers.Debugf("Result cache hit for %q", req.Method)
	}
	return value, found
}

func (m *methodCache) Put(ctx context.Context, req jsonrpc.Request, result ldvalue.Value) {
	key, ok := m.keyFor(req)
	if !ok {
		return
	}
	if err := m.store.Put(ctx, key, result, m.ttl); err != nil {
		m.loggers.Warnf("Result cache update for %q failed: %s", req.Method, err)
	}
}

func (m *methodCache) Close() error {
	return m.store.Close()
}

// keyFor returns the cache key for a request: the method name and the canonical JSON of its params,
// with object keys sorted. Requests with the same method and params share a result regardless of id
// or of the order in which the caller wrote object keys.
func (m *methodCache) keyFor(req jsonrpc.Request) (string, bool) {
	if _, ok := m.methods[req.Method]; !ok {
		return "", false
	}
	params, err := jsonrpc.CanonicalJSON(req.Params)
	if err != nil { // COVERAGE: params of a validated request are always valid JSON
		m.loggers.Warnf("Not caching %q: %s", req.Method, err)
		return "", false
	}
	return req.Method + ":" + params, true
}
