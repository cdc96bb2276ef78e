package cache

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = ":cache:"

var tlsConfigForRedis = tls.Config{MinVersion: tls.VersionTLS12} //nolint:gochecknoglobals,gosec

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Store that keeps results in Redis, using the same server as the registry
// store. Keys are "<prefix>:cache:<method>:<params>".
func NewRedisStore(dbConfig config.RedisConfig, loggers ldlog.Loggers) (Store, error) {
	loggers.Debugf("Connecting result cache to Redis at %s", util.RedactURL(dbConfig.URL.String()))
	opts, err := redis.ParseURL(dbConfig.URL.String())
	if err != nil {
		return nil, err
	}
	if dbConfig.Password != "" {
		opts.Password = dbConfig.Password
	}
	if dbConfig.TLS && opts.TLSConfig == nil {
		tlsConfig := tlsConfigForRedis.Clone()
		opts.TLSConfig = tlsConfig
	}
	prefix := dbConfig.Prefix
	if prefix == "" {
		prefix = config.DefaultDatabasePrefix
	}
	return &redisStore{client: redis.NewClient(opts), prefix: prefix + redisKeyPrefix}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (ldvalue.Value, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return ldvalue.Null(), false, nil
	}
	if err != nil {
		return ldvalue.Null(), false, err
	}
	value, err := jsonrpc.ParseValue(data)
	if err != nil {
		return ldvalue.Null(), false, err
	}
	return value, true, nil
}

func (s *redisStore) Put(ctx context.Context, key string, value ldvalue.Value, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value.JSONString(), ttl).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
