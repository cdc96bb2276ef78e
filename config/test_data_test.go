package config

import (
	"crypto/tls"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"
)

type testDataValidConfig struct {
	name        string
	makeConfig  func(c *Config)
	envVars     map[string]string
	fileContent string
	warnings    []string
}

type testDataInvalidConfig struct {
	name         string
	envVarsError string
	fileError    string
	envVars      map[string]string
	fileContent  string
}

func (tdc testDataValidConfig) assertResult(t *testing.T, actualConfig Config, mockLog *ldlogtest.MockLog) {
	var expectedConfig Config
	tdc.makeConfig(&expectedConfig)
	assert.Equal(t, expectedConfig, actualConfig)
	for _, message := range tdc.warnings {
		mockLog.AssertMessageMatch(t, true, ldlog.Warn, regexp.QuoteMeta(message))
	}
}

func mustOptIntGreaterThanZero(n int) ct.OptIntGreaterThanZero {
	o, err := ct.NewOptIntGreaterThanZero(n)
	if err != nil {
		panic(err)
	}
	return o
}

func makeValidConfigs() []testDataValidConfig {
	return []testDataValidConfig{
		makeValidConfigAllMainProperties(),
		makeValidConfigRedisMinimal(),
		makeValidConfigRedisAll(),
		makeValidConfigRedisDockerPort(),
		makeValidConfigConsulMinimal(),
		makeValidConfigConsulAll(),
		makeValidConfigDynamoDB(),
		makeValidConfigCache(),
		makeValidConfigCacheWithRedis(),
		makeValidConfigDatadog(),
		makeValidConfigStackdriver(),
		makeValidConfigPrometheus(),
		makeValidConfigProxy(),
		makeValidConfigTopology(),
		makeValidConfigMethodWithUnknownNode(),
	}
}

func makeInvalidConfigs() []testDataInvalidConfig {
	return []testDataInvalidConfig{
		makeInvalidConfigTLSWithNoCertOrKey(),
		makeInvalidConfigTLSWithNoKey(),
		makeInvalidConfigTLSVersion(),
		makeInvalidConfigRedisConflictingParams(),
		makeInvalidConfigRedisInvalidDockerPort(),
		makeInvalidConfigMultipleDatabases(),
		makeInvalidConfigConsulTokenAndTokenFile(),
		makeInvalidConfigDynamoDBNoTableName(),
		makeInvalidConfigCacheWithoutMethods(),
		makeInvalidConfigCacheRedisWithoutRedis(),
		makeInvalidConfigNTLMWithoutCredentials(),
		makeInvalidConfigNegativeCapacity(),
		makeInvalidConfigNonNumericCapacity(),
		makeInvalidConfigMethodWithoutNodes(),
	}
}

func makeValidConfigAllMainProperties() testDataValidConfig {
	c := testDataValidConfig{name: "all main properties"}
	c.makeConfig = func(c *Config) {
		c.Main = MainConfig{
			Port:                mustOptIntGreaterThanZero(8333),
			AdminKey:            "secret",
			CallTimeout:         ct.NewOptDuration(5 * time.Second),
			CallCost:            mustOptIntGreaterThanZero(2),
			MaxBatchSize:        mustOptIntGreaterThanZero(50),
			MaxBatchConcurrency: mustOptIntGreaterThanZero(4),
			MaxRequestSize:      mustOptIntGreaterThanZero(65536),
			SnapshotInterval:    ct.NewOptDuration(30 * time.Second),
			TopologyFile:        "/etc/rpc-relay/topology.conf",
			ExitOnError:         true,
			TLSEnabled:          true,
			TLSCert:             "cert",
			TLSKey:              "key",
			TLSMinVersion:       NewOptTLSVersion(tls.VersionTLS12),
			LogLevel:            NewOptLogLevel(ldlog.Warn),
		}
	}
	c.envVars = map[string]string{
		"PORT":                  "8333",
		"ADMIN_KEY":             "secret",
		"CALL_TIMEOUT":          "5s",
		"CALL_COST":             "2",
		"MAX_BATCH_SIZE":        "50",
		"MAX_BATCH_CONCURRENCY": "4",
		"MAX_REQUEST_SIZE":      "65536",
		"SNAPSHOT_INTERVAL":     "30s",
		"TOPOLOGY_FILE":         "/etc/rpc-relay/topology.conf",
		"EXIT_ON_ERROR":         "1",
		"TLS_ENABLED":           "1",
		"TLS_CERT":              "cert",
		"TLS_KEY":               "key",
		"TLS_MIN_VERSION":       "1.2",
		"LOG_LEVEL":             "warn",
	}
	c.fileContent = `
[Main]
Port = 8333
AdminKey = secret
CallTimeout = 5s
CallCost = 2
MaxBatchSize = 50
MaxBatchConcurrency = 4
MaxRequestSize = 65536
SnapshotInterval = 30s
TopologyFile = /etc/rpc-relay/topology.conf
ExitOnError = 1
TLSEnabled = 1
TLSCert = cert
TLSKey = key
TLSMinVersion = 1.2
LogLevel = warn
`
	return c
}

func makeValidConfigRedisMinimal() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - minimal parameters"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = newOptURLAbsoluteMustBeValid("redis://localhost:6379")
	}
	c.envVars = map[string]string{
		"USE_REDIS": "1",
	}
	c.fileContent = `
[Redis]
Host = localhost
`
	return c
}

func makeValidConfigRedisAll() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - all parameters"}
	c.makeConfig = func(c *Config) {
		c.Redis = RedisConfig{
			URL:      newOptURLAbsoluteMustBeValid("rediss://redishost:6400"),
			Prefix:   "relay1",
			TLS:      true,
			Password: "pass",
		}
	}
	c.envVars = map[string]string{
		"USE_REDIS":      "1",
		"REDIS_URL":      "rediss://redishost:6400",
		"REDIS_PREFIX":   "relay1",
		"REDIS_TLS":      "1",
		"REDIS_PASSWORD": "pass",
	}
	c.fileContent = `
[Redis]
URL = rediss://redishost:6400
Prefix = relay1
TLS = 1
Password = pass
`
	return c
}

func makeValidConfigRedisDockerPort() testDataValidConfig {
	c := testDataValidConfig{name: "Redis - special Docker port syntax"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = newOptURLAbsoluteMustBeValid("redis://redishost:2222")
	}
	c.envVars = map[string]string{
		"USE_REDIS":  "1",
		"REDIS_PORT": "tcp://redishost:2222",
	}
	return c
}

func makeValidConfigConsulMinimal() testDataValidConfig {
	c := testDataValidConfig{name: "Consul - minimal parameters"}
	c.makeConfig = func(c *Config) {
		c.Consul.Host = "localhost"
	}
	c.envVars = map[string]string{
		"USE_CONSUL": "1",
	}
	c.fileContent = `
[Consul]
Host = localhost
`
	return c
}

func makeValidConfigConsulAll() testDataValidConfig {
	c := testDataValidConfig{name: "Consul - all parameters"}
	c.makeConfig = func(c *Config) {
		c.Consul = ConsulConfig{
			Host:   "consulhost",
			Prefix: "relay1",
			Token:  "abc",
		}
	}
	c.envVars = map[string]string{
		"USE_CONSUL":    "1",
		"CONSUL_HOST":   "consulhost",
		"CONSUL_PREFIX": "relay1",
		"CONSUL_TOKEN":  "abc",
	}
	c.fileContent = `
[Consul]
Host = consulhost
Prefix = relay1
Token = abc
`
	return c
}

func makeValidConfigDynamoDB() testDataValidConfig {
	c := testDataValidConfig{name: "DynamoDB"}
	c.makeConfig = func(c *Config) {
		c.DynamoDB = DynamoDBConfig{
			Enabled:   true,
			TableName: "relay-topology",
			URL:       newOptURLAbsoluteMustBeValid("http://localhost:8000"),
		}
	}
	c.envVars = map[string]string{
		"USE_DYNAMODB":   "1",
		"DYNAMODB_TABLE": "relay-topology",
		"DYNAMODB_URL":   "http://localhost:8000",
	}
	c.fileContent = `
[DynamoDB]
Enabled = true
TableName = relay-topology
URL = http://localhost:8000
`
	return c
}

func makeValidConfigCache() testDataValidConfig {
	c := testDataValidConfig{name: "cache"}
	c.makeConfig = func(c *Config) {
		c.Cache = CacheConfig{
			Methods: ct.NewOptStringList([]string{"eth_blockNumber", "eth_chainId"}),
			TTL:     ct.NewOptDuration(2 * time.Second),
			Size:    mustOptIntGreaterThanZero(100),
		}
	}
	c.envVars = map[string]string{
		"CACHE_METHODS": "eth_blockNumber,eth_chainId",
		"CACHE_TTL":     "2s",
		"CACHE_SIZE":    "100",
	}
	c.fileContent = `
[Cache]
Methods = eth_blockNumber,eth_chainId
TTL = 2s
Size = 100
`
	return c
}

func makeValidConfigCacheWithRedis() testDataValidConfig {
	c := testDataValidConfig{name: "cache in Redis"}
	c.makeConfig = func(c *Config) {
		c.Redis.URL = newOptURLAbsoluteMustBeValid("redis://redishost:6379")
		c.Cache = CacheConfig{
			Methods:  ct.NewOptStringList([]string{"eth_chainId"}),
			UseRedis: true,
		}
	}
	c.envVars = map[string]string{
		"USE_REDIS":       "1",
		"REDIS_HOST":      "redishost",
		"CACHE_METHODS":   "eth_chainId",
		"CACHE_USE_REDIS": "1",
	}
	c.fileContent = `
[Redis]
Host = redishost

[Cache]
Methods = eth_chainId
UseRedis = true
`
	return c
}

func makeValidConfigDatadog() testDataValidConfig {
	c := testDataValidConfig{name: "Datadog"}
	c.makeConfig = func(c *Config) {
		c.MetricsConfig.Datadog = DatadogConfig{
			Enabled:   true,
			Prefix:    "relay",
			TraceAddr: "trace",
			StatsAddr: "stats",
			Tag:       []string{"tag1:value1", "tag2:value2"},
		}
	}
	c.envVars = map[string]string{
		"USE_DATADOG":        "1",
		"DATADOG_PREFIX":     "relay",
		"DATADOG_TRACE_ADDR": "trace",
		"DATADOG_STATS_ADDR": "stats",
		"DATADOG_TAG_tag1":   "value1",
		"DATADOG_TAG_tag2":   "value2",
	}
	c.fileContent = `
[Datadog]
Enabled = true
Prefix = relay
TraceAddr = trace
StatsAddr = stats
Tag = tag1:value1
Tag = tag2:value2
`
	return c
}

func makeValidConfigStackdriver() testDataValidConfig {
	c := testDataValidConfig{name: "Stackdriver"}
	c.makeConfig = func(c *Config) {
		c.MetricsConfig.Stackdriver = StackdriverConfig{
			Enabled:   true,
			Prefix:    "relay",
			ProjectID: "proj",
		}
	}
	c.envVars = map[string]string{
		"USE_STACKDRIVER":        "1",
		"STACKDRIVER_PREFIX":     "relay",
		"STACKDRIVER_PROJECT_ID": "proj",
	}
	c.fileContent = `
[Stackdriver]
Enabled = true
Prefix = relay
ProjectID = proj
`
	return c
}

func makeValidConfigPrometheus() testDataValidConfig {
	c := testDataValidConfig{name: "Prometheus"}
	c.makeConfig = func(c *Config) {
		c.MetricsConfig.Prometheus = PrometheusConfig{
			Enabled: true,
			Prefix:  "relay",
			Port:    mustOptIntGreaterThanZero(9090),
		}
	}
	c.envVars = map[string]string{
		"USE_PROMETHEUS":    "1",
		"PROMETHEUS_PREFIX": "relay",
		"PROMETHEUS_PORT":   "9090",
	}
	c.fileContent = `
[Prometheus]
Enabled = true
Prefix = relay
Port = 9090
`
	return c
}

func makeValidConfigProxy() testDataValidConfig {
	c := testDataValidConfig{name: "proxy"}
	c.makeConfig = func(c *Config) {
		c.Proxy = ProxyConfig{
			URL:         newOptURLAbsoluteMustBeValid("http://proxy"),
			NTLMAuth:    true,
			User:        "user",
			Password:    "pass",
			Domain:      "domain",
			CACertFiles: ct.NewOptStringList([]string{"cert1", "cert2"}),
		}
	}
	c.envVars = map[string]string{
		"PROXY_URL":           "http://proxy",
		"PROXY_AUTH_NTLM":     "1",
		"PROXY_AUTH_USER":     "user",
		"PROXY_AUTH_PASSWORD": "pass",
		"PROXY_AUTH_DOMAIN":   "domain",
		"PROXY_CA_CERTS":      "cert1,cert2",
	}
	c.fileContent = `
[Proxy]
URL = http://proxy
NTLMAuth = true
User = user
Password = pass
Domain = domain
CACertFiles = cert1,cert2
`
	return c
}

func makeValidConfigTopology() testDataValidConfig {
	c := testDataValidConfig{name: "nodes and methods"}
	c.makeConfig = func(c *Config) {
		c.Node = map[string]*NodeConfig{
			"node1": {Capacity: 5000000, Endpoint: newOptURLAbsoluteMustBeValid("http://node1:8545")},
			"node2": {Capacity: 4000000},
		}
		c.Method = map[string]*MethodConfig{
			"eth_getBalance": {Node: []string{"node1"}},
			"eth_call":       {Node: []string{"node1", "node2"}, Cost: mustOptIntGreaterThanZero(5)},
		}
	}
	c.envVars = map[string]string{
		"NODE_CAPACITY_node1":         "5000000",
		"NODE_ENDPOINT_node1":         "http://node1:8545",
		"NODE_CAPACITY_node2":         "4000000",
		"METHOD_NODES_eth_getBalance": "node1",
		"METHOD_NODES_eth_call":       "node1, node2",
		"METHOD_COST_eth_call":        "5",
	}
	c.fileContent = `
[Node "node1"]
Capacity = 5000000
Endpoint = http://node1:8545

[Node "node2"]
Capacity = 4000000

[Method "eth_getBalance"]
Node = node1

[Method "eth_call"]
Node = node1
Node = node2
Cost = 5
`
	return c
}

func makeValidConfigMethodWithUnknownNode() testDataValidConfig {
	c := testDataValidConfig{name: "method naming a node that is not configured"}
	c.makeConfig = func(c *Config) {
		c.Method = map[string]*MethodConfig{
			"eth_call": {Node: []string{"node9"}},
		}
	}
	c.envVars = map[string]string{
		"METHOD_NODES_eth_call": "node9",
	}
	c.fileContent = `
[Method "eth_call"]
Node = node9
`
	c.warnings = []string{warnMethodNamesUnknownNode("eth_call", "node9")}
	return c
}

func makeInvalidConfigTLSWithNoCertOrKey() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "TLS without cert/key"}
	c.envVarsError = errTLSEnabledWithoutCertOrKey.Error()
	c.envVars = map[string]string{"TLS_ENABLED": "1"}
	c.fileContent = `
[Main]
TLSEnabled = true
`
	return c
}

func makeInvalidConfigTLSWithNoKey() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "TLS without key"}
	c.envVarsError = errTLSEnabledWithoutCertOrKey.Error()
	c.envVars = map[string]string{"TLS_ENABLED": "1", "TLS_CERT": "cert"}
	c.fileContent = `
[Main]
TLSEnabled = true
TLSCert = cert
`
	return c
}

func makeInvalidConfigTLSVersion() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "bad TLS version"}
	c.envVarsError = `TLS_MIN_VERSION: "1.9" is not a valid TLS version`
	c.fileError = `"1.9" is not a valid TLS version`
	c.envVars = map[string]string{"TLS_MIN_VERSION": "1.9"}
	c.fileContent = `
[Main]
TLSMinVersion = 1.9
`
	return c
}

func makeInvalidConfigRedisConflictingParams() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "Redis - conflicting parameters"}
	c.envVarsError = errRedisURLWithHostAndPort.Error()
	c.envVars = map[string]string{
		"USE_REDIS":  "1",
		"REDIS_URL":  "redis://localhost:6379",
		"REDIS_HOST": "otherhost",
	}
	c.fileContent = `
[Redis]
URL = redis://localhost:6379
Host = otherhost
`
	return c
}

func makeInvalidConfigRedisInvalidDockerPort() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "Redis - invalid Docker port syntax"}
	c.envVarsError = "REDIS_PORT: not a valid integer"
	c.envVars = map[string]string{
		"USE_REDIS":  "1",
		"REDIS_PORT": "tcp://redishost:xxx",
	}
	return c
}

func makeInvalidConfigMultipleDatabases() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "multiple databases"}
	c.envVarsError = errMultipleDatabases([]string{"Redis", "Consul"}).Error()
	c.envVars = map[string]string{
		"USE_REDIS":  "1",
		"USE_CONSUL": "1",
	}
	c.fileContent = `
[Redis]
Host = localhost

[Consul]
Host = localhost
`
	return c
}

func makeInvalidConfigConsulTokenAndTokenFile() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "Consul - token and token file"}
	c.envVarsError = errConsulTokenAndTokenFile.Error()
	c.envVars = map[string]string{
		"USE_CONSUL":        "1",
		"CONSUL_TOKEN":      "abc",
		"CONSUL_TOKEN_FILE": "/tmp/token",
	}
	c.fileContent = `
[Consul]
Host = localhost
Token = abc
TokenFile = /tmp/token
`
	return c
}

func makeInvalidConfigDynamoDBNoTableName() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "DynamoDB - no table name"}
	c.envVarsError = errDynamoDBWithoutTableName.Error()
	c.envVars = map[string]string{"USE_DYNAMODB": "1"}
	c.fileContent = `
[DynamoDB]
Enabled = true
`
	return c
}

func makeInvalidConfigCacheWithoutMethods() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "cache properties without methods"}
	c.envVarsError = errCacheWithoutMethods.Error()
	c.envVars = map[string]string{"CACHE_TTL": "1s"}
	c.fileContent = `
[Cache]
TTL = 1s
`
	return c
}

func makeInvalidConfigCacheRedisWithoutRedis() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "cache in Redis without Redis"}
	c.envVarsError = errCacheRedisWithoutRedis.Error()
	c.envVars = map[string]string{"CACHE_METHODS": "eth_chainId", "CACHE_USE_REDIS": "1"}
	c.fileContent = `
[Cache]
Methods = eth_chainId
UseRedis = true
`
	return c
}

func makeInvalidConfigNTLMWithoutCredentials() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "NTLM proxy without credentials"}
	c.envVarsError = errNTLMWithoutCredentials.Error()
	c.envVars = map[string]string{"PROXY_URL": "http://proxy", "PROXY_AUTH_NTLM": "1"}
	c.fileContent = `
[Proxy]
URL = http://proxy
NTLMAuth = true
`
	return c
}

func makeInvalidConfigNegativeCapacity() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "node with negative capacity"}
	c.envVarsError = errNodeNegativeCapacity("node1").Error()
	c.envVars = map[string]string{"NODE_CAPACITY_node1": "-5"}
	c.fileContent = `
[Node "node1"]
Capacity = -5
`
	return c
}

func makeInvalidConfigNonNumericCapacity() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "node with non-numeric capacity"}
	c.envVarsError = "NODE_CAPACITY_node1: not a valid integer"
	c.envVars = map[string]string{"NODE_CAPACITY_node1": "lots"}
	return c
}

func makeInvalidConfigMethodWithoutNodes() testDataInvalidConfig {
	c := testDataInvalidConfig{name: "method without nodes"}
	c.fileError = errMethodWithoutNodes("eth_call").Error()
	c.fileContent = `
[Method "eth_call"]
Cost = 2
`
	return c
}
