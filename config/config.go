// Package config contains the configuration types and loaders for the relay.
package config

import (
	"time"

	ct "github.com/launchdarkly/go-configtypes"
)

const (
	// DefaultPort is the port the relay listens on if Main.Port is not set.
	DefaultPort = 8030

	// DefaultCallTimeout is the default value for MainConfig.CallTimeout.
	DefaultCallTimeout = 30 * time.Second

	// DefaultCallCost is the default value for MainConfig.CallCost.
	DefaultCallCost = 1

	// DefaultMaxBatchConcurrency is the default value for MainConfig.MaxBatchConcurrency.
	DefaultMaxBatchConcurrency = 10

	// DefaultMaxRequestSize is the default value for MainConfig.MaxRequestSize, in bytes.
	DefaultMaxRequestSize = 1 << 20

	// DefaultSnapshotInterval is the default value for MainConfig.SnapshotInterval, used only if a
	// database is configured.
	DefaultSnapshotInterval = time.Minute

	// DefaultCacheTTL is the default value for CacheConfig.TTL.
	DefaultCacheTTL = 5 * time.Second

	// DefaultCacheSize is the default value for CacheConfig.Size.
	DefaultCacheSize = 10000

	// DefaultPrometheusPort is the default value for PrometheusConfig.Port.
	DefaultPrometheusPort = 8031

	// DefaultDatabasePrefix is the default key prefix for Redis and Consul.
	DefaultDatabasePrefix = "rpcrelay"
)

const (
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultConsulHost = "localhost"
)

var defaultRedisURL = newOptURLAbsoluteMustBeValid("redis://localhost:6379") //nolint:gochecknoglobals

// Config describes the configuration for a relay instance.
//
// Since configuration options can be set either programmatically, or from a file, or from environment
// variables, individual fields are only briefly documented here.
type Config struct {
	Main     MainConfig
	Redis    RedisConfig
	Consul   ConsulConfig
	DynamoDB DynamoDBConfig
	Cache    CacheConfig
	Proxy    ProxyConfig

	// Node and Method are the initial topology. In the configuration file these are repeated
	// [Node "address"] and [Method "name"] sections.
	Node   map[string]*NodeConfig
	Method map[string]*MethodConfig

	// Optional configuration for metrics integrations. Note that unlike the other fields in Config,
	// MetricsConfig is not the name of a configuration file section; the actual sections are the
	// structs within this struct (Datadog, etc.).
	MetricsConfig
}

// MainConfig contains global configuration options for the relay.
//
// This corresponds to the [Main] section in the configuration file.
type MainConfig struct {
	Port                ct.OptIntGreaterThanZero `conf:"PORT"`
	AdminKey            string                   `conf:"ADMIN_KEY"`
	CallTimeout         ct.OptDuration           `conf:"CALL_TIMEOUT"`
	CallCost            ct.OptIntGreaterThanZero `conf:"CALL_COST"`
	MaxBatchSize        ct.OptIntGreaterThanZero `conf:"MAX_BATCH_SIZE"`
	MaxBatchConcurrency ct.OptIntGreaterThanZero `conf:"MAX_BATCH_CONCURRENCY"`
	MaxRequestSize      ct.OptIntGreaterThanZero `conf:"MAX_REQUEST_SIZE"`
	SnapshotInterval    ct.OptDuration           `conf:"SNAPSHOT_INTERVAL"`
	TopologyFile        string                   `conf:"TOPOLOGY_FILE"`
	ExitOnError         bool                     `conf:"EXIT_ON_ERROR"`
	TLSEnabled          bool                     `conf:"TLS_ENABLED"`
	TLSCert             string                   `conf:"TLS_CERT"`
	TLSKey              string                   `conf:"TLS_KEY"`
	TLSMinVersion       OptTLSVersion            `conf:"TLS_MIN_VERSION"`
	LogLevel            OptLogLevel              `conf:"LOG_LEVEL"`
}

// RedisConfig configures the optional Redis integration.
//
// Redis is enabled if URL or Host is non-empty or if Port is set. If only Host or Port is set, the other
// value defaults to localhost or 6379. It is an error to set Host or Port if URL is also set. After
// validation, Host and Port are always folded into URL.
//
// This corresponds to the [Redis] section in the configuration file.
type RedisConfig struct {
	Host     string                   `conf:"REDIS_HOST"`
	Port     ct.OptIntGreaterThanZero // handled separately in config_from_env.go
	URL      ct.OptURLAbsolute        `conf:"REDIS_URL"`
	Prefix   string                   `conf:"REDIS_PREFIX"`
	TLS      bool                     `conf:"REDIS_TLS"`
	Password string                   `conf:"REDIS_PASSWORD"`
}

// ConsulConfig configures the optional Consul integration.
//
// Consul is enabled if Host is non-empty.
//
// This corresponds to the [Consul] section in the configuration file.
type ConsulConfig struct {
	Host      string `conf:"CONSUL_HOST"`
	Prefix    string `conf:"CONSUL_PREFIX"`
	Token     string `conf:"CONSUL_TOKEN"`
	TokenFile string `conf:"CONSUL_TOKEN_FILE"`
}

// DynamoDBConfig configures the optional DynamoDB integration, which is used only if Enabled is true.
//
// This corresponds to the [DynamoDB] section in the configuration file.
type DynamoDBConfig struct {
	Enabled   bool              `conf:"USE_DYNAMODB"`
	TableName string            `conf:"DYNAMODB_TABLE"`
	URL       ct.OptURLAbsolute `conf:"DYNAMODB_URL"`
}

// CacheConfig configures result caching. Caching is enabled for the listed methods only; it is meant
// for read-only methods whose results can be reused for a short time.
//
// This corresponds to the [Cache] section in the configuration file.
type CacheConfig struct {
	Methods  ct.OptStringList         `conf:"CACHE_METHODS"`
	TTL      ct.OptDuration           `conf:"CACHE_TTL"`
	Size     ct.OptIntGreaterThanZero `conf:"CACHE_SIZE"`
	UseRedis bool                     `conf:"CACHE_USE_REDIS"`
}

// ProxyConfig represents all the supported proxy options for connections to backend nodes.
type ProxyConfig struct {
	URL         ct.OptURLAbsolute `conf:"PROXY_URL"`
	NTLMAuth    bool              `conf:"PROXY_AUTH_NTLM"`
	User        string            `conf:"PROXY_AUTH_USER"`
	Password    string            `conf:"PROXY_AUTH_PASSWORD"`
	Domain      string            `conf:"PROXY_AUTH_DOMAIN"`
	CACertFiles ct.OptStringList  `conf:"PROXY_CA_CERTS"`
}

// NodeConfig describes a backend node that is registered when the relay starts.
//
// This corresponds to one of the [Node "address"] sections in the configuration file.
type NodeConfig struct {
	Capacity int64
	Endpoint ct.OptURLAbsolute `conf:"NODE_ENDPOINT_"`
}

// MethodConfig authorizes nodes for a method when the relay starts, and optionally sets the method's
// capacity cost.
//
// This corresponds to one of the [Method "name"] sections in the configuration file. Node may be
// repeated.
type MethodConfig struct {
	Node []string
	Cost ct.OptIntGreaterThanZero `conf:"METHOD_COST_"`
}

// MetricsConfig contains configurations for optional metrics integrations.
//
// This corresponds to the [Datadog], [Stackdriver], and [Prometheus] sections in the configuration file.
type MetricsConfig struct {
	Datadog     DatadogConfig
	Stackdriver StackdriverConfig
	Prometheus  PrometheusConfig
}

// DatadogConfig configures the optional Datadog integration, which is used only if Enabled is true.
type DatadogConfig struct {
	Enabled   bool     `conf:"USE_DATADOG"`
	Prefix    string   `conf:"DATADOG_PREFIX"`
	TraceAddr string   `conf:"DATADOG_TRACE_ADDR"`
	StatsAddr string   `conf:"DATADOG_STATS_ADDR"`
	Tag       []string // special handling in config_from_env.go
}

// StackdriverConfig configures the optional Stackdriver integration, which is used only if Enabled is true.
type StackdriverConfig struct {
	Enabled   bool   `conf:"USE_STACKDRIVER"`
	Prefix    string `conf:"STACKDRIVER_PREFIX"`
	ProjectID string `conf:"STACKDRIVER_PROJECT_ID"`
}

// PrometheusConfig configures the optional Prometheus integration, which is used only if Enabled is true.
type PrometheusConfig struct {
	Enabled bool                     `conf:"USE_PROMETHEUS"`
	Prefix  string                   `conf:"PROMETHEUS_PREFIX"`
	Port    ct.OptIntGreaterThanZero `conf:"PROMETHEUS_PORT"`
}

// IsCacheEnabled returns true if at least one method is configured for result caching.
func (c Config) IsCacheEnabled() bool {
	return len(c.Cache.Methods.Values()) != 0
}

// DatabaseName returns the name of the configured database, or "" if there is none.
func (c Config) DatabaseName() string {
	switch {
	case c.Redis.URL.IsDefined():
		return "Redis"
	case c.Consul.Host != "":
		return "Consul"
	case c.DynamoDB.Enabled:
		return "DynamoDB"
	}
	return ""
}

func newOptURLAbsoluteMustBeValid(urlString string) ct.OptURLAbsolute {
	o, err := ct.NewOptURLAbsoluteFromString(urlString)
	if err != nil {
		panic(err)
	}
	return o
}
