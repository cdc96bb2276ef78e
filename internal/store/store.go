package store

import (
	"context"
	"io"
	"strings"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// Persister is a registry.Persister that holds a database connection.
type Persister interface {
	registry.Persister
	io.Closer
}

// Info describes the configured database for the status resource.
type Info struct {
	// DBType is "redis", "consul", "dynamodb", or "" if nothing is persisted.
	DBType string
	// DBServer is the database URL or host. Passwords, if any, are redacted.
	DBServer string
	DBPrefix string
	// DBTable is the table name if using DynamoDB.
	DBTable string
}

// ConfigurePersister creates the Persister for whichever database is configured, or returns a nil
// Persister if there is none. It assumes the configuration has already been validated.
func ConfigurePersister(ctx context.Context, allConfig config.Config, loggers ldlog.Loggers) (Persister, Info, error) {
	if allConfig.Redis.URL.IsDefined() {
		redisURL := getRedisURL(allConfig.Redis)
		prefix := prefixOrDefault(allConfig.Redis.Prefix)
		info := Info{DBType: "redis", DBServer: util.RedactURL(redisURL), DBPrefix: prefix}
		loggers.Infof("Using Redis registry store: %s with prefix: %s", info.DBServer, prefix)
		return newRedisPersister(redisURL, allConfig.Redis.Password, prefix, loggers), info, nil
	}

	if allConfig.Consul.Host != "" {
		prefix := prefixOrDefault(allConfig.Consul.Prefix)
		info := Info{DBType: "consul", DBServer: allConfig.Consul.Host, DBPrefix: prefix}
		loggers.Infof("Using Consul registry store: %s with prefix: %s", info.DBServer, prefix)
		p, err := newConsulPersister(allConfig.Consul, prefix, loggers)
		if err != nil {
			return nil, Info{}, err
		}
		return p, info, nil
	}

	if allConfig.DynamoDB.Enabled {
		info := Info{
			DBType:   "dynamodb",
			DBServer: allConfig.DynamoDB.URL.String(),
			DBPrefix: config.DefaultDatabasePrefix,
			DBTable:  allConfig.DynamoDB.TableName,
		}
		loggers.Infof("Using DynamoDB registry store: table %s", info.DBTable)
		p, err := newDynamoDBPersister(ctx, allConfig.DynamoDB, info.DBPrefix, nil, loggers)
		if err != nil {
			return nil, Info{}, err
		}
		return p, info, nil
	}

	return nil, Info{}, nil
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return config.DefaultDatabasePrefix
	}
	return prefix
}

// getRedisURL applies the TLS option to the configured URL, since redigo's DialUseTLS option does not
// work together with a URL.
func getRedisURL(dbConfig config.RedisConfig) string {
	redisURL := dbConfig.URL.String()
	if dbConfig.TLS && strings.HasPrefix(redisURL, "redis:") {
		redisURL = "rediss:" + strings.TrimPrefix(redisURL, "redis:")
	}
	return redisURL
}

func logSkipped(loggers ldlog.Loggers, dbName string, b *stateBuilder) {
	if b.skipped > 0 {
		loggers.Warnf("Skipped %d unreadable record(s) in %s registry store: %s", b.skipped, dbName, b.firstErr)
	}
}
