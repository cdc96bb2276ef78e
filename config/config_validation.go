package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

var (
	errTLSEnabledWithoutCertOrKey = errors.New("TLS cert and key are required if TLS is enabled")
	errRedisURLWithHostAndPort    = errors.New("please specify Redis URL or host/port, but not both")
	errRedisBadHostname           = errors.New("invalid Redis hostname")
	errConsulTokenAndTokenFile    = errors.New("Consul token must be specified as either an inline value or a file, but not both") //nolint:stylecheck
	errConsulTokenFileNotFound    = errors.New("Consul token file not found")                                                      //nolint:stylecheck
	errDynamoDBWithoutTableName   = errors.New("DynamoDB table name is required if DynamoDB is enabled")
	errCacheWithoutMethods        = errors.New("cache properties were set but no methods are listed for caching")
	errCacheRedisWithoutRedis     = errors.New("cache is configured to use Redis but Redis is not configured")
	errNTLMWithoutCredentials     = errors.New("NTLM proxy authentication requires proxy URL, username, and password")
)

func errMultipleDatabases(databases []string) error {
	return fmt.Errorf("multiple databases are enabled (%s); only one is allowed", strings.Join(databases, ", "))
}

func errNodeNegativeCapacity(address string) error {
	return fmt.Errorf("capacity for node %q must not be negative", address)
}

func errMethodWithoutNodes(method string) error {
	return fmt.Errorf("method %q does not name any nodes", method)
}

func warnMethodNamesUnknownNode(method, address string) string {
	return fmt.Sprintf("method %q names node %q, which is not configured; it will only be usable once the node is registered",
		method, address)
}

// ValidateConfig ensures that the configuration does not contain contradictory properties.
//
// This method covers validation rules that can't be enforced on a per-field basis (for instance, if
// either field A or field B can be specified but it's invalid to specify both). It is allowed to modify
// the Config struct in order to canonicalize settings, such as converting Redis host/port settings into
// a Redis URL.
//
// LoadConfigFromEnvironment and LoadConfigFile both call this method as a last step, but it is also
// called again by the relay constructor because a Config can be built programmatically.
func ValidateConfig(c *Config, loggers ldlog.Loggers) error {
	var result ct.ValidationResult

	validateConfigTLS(&result, c)
	validateConfigDatabases(&result, c)
	validateConfigCache(&result, c)
	validateConfigProxy(&result, c)
	validateTopology(&result, c.Node, c.Method, loggers)

	return result.GetError()
}

// ValidateTopology checks a set of [Node] and [Method] sections on their own. It is used for the
// optional topology file, which has the same sections as the main configuration.
func ValidateTopology(nodes map[string]*NodeConfig, methods map[string]*MethodConfig, loggers ldlog.Loggers) error {
	var result ct.ValidationResult
	validateTopology(&result, nodes, methods, loggers)
	return result.GetError()
}

func validateConfigTLS(result *ct.ValidationResult, c *Config) {
	if c.Main.TLSEnabled && (c.Main.TLSCert == "" || c.Main.TLSKey == "") {
		result.AddError(nil, errTLSEnabledWithoutCertOrKey)
	}
}

func validateConfigDatabases(result *ct.ValidationResult, c *Config) {
	normalizeRedisConfig(result, c)

	databases := []string{}
	if c.Redis.URL.IsDefined() {
		databases = append(databases, "Redis")
	}
	if c.Consul.Host != "" {
		databases = append(databases, "Consul")
	}
	if c.DynamoDB.Enabled {
		databases = append(databases, "DynamoDB")
	}

	if len(databases) > 1 {
		result.AddError(nil, errMultipleDatabases(databases))
		return // no point doing further database config validation if it's in this state
	}

	if c.Consul.Host != "" {
		switch {
		case c.Consul.Token != "" && c.Consul.TokenFile != "":
			result.AddError(nil, errConsulTokenAndTokenFile)
		case c.Consul.TokenFile != "":
			if _, err := os.Stat(c.Consul.TokenFile); os.IsNotExist(err) {
				result.AddError(nil, errConsulTokenFileNotFound)
			}
		}
	}

	if c.DynamoDB.Enabled && c.DynamoDB.TableName == "" {
		result.AddError(nil, errDynamoDBWithoutTableName)
	}
}

func normalizeRedisConfig(result *ct.ValidationResult, c *Config) {
	if c.Redis.URL.IsDefined() {
		if c.Redis.Host != "" || c.Redis.Port.IsDefined() {
			result.AddError(nil, errRedisURLWithHostAndPort)
		}
	} else if c.Redis.Host != "" || c.Redis.Port.IsDefined() {
		host := c.Redis.Host
		if host == "" {
			host = defaultRedisHost
		}
		port := c.Redis.Port.GetOrElse(defaultRedisPort)
		url, err := ct.NewOptURLAbsoluteFromString(fmt.Sprintf("redis://%s:%d", host, port))
		if err != nil {
			result.AddError(nil, errRedisBadHostname)
		}
		c.Redis.URL = url
		c.Redis.Host = ""
		c.Redis.Port = ct.OptIntGreaterThanZero{}
	}
}

func validateConfigCache(result *ct.ValidationResult, c *Config) {
	if !c.IsCacheEnabled() {
		if c.Cache.TTL.IsDefined() || c.Cache.Size.IsDefined() || c.Cache.UseRedis {
			result.AddError(nil, errCacheWithoutMethods)
		}
		return
	}
	if c.Cache.UseRedis && !c.Redis.URL.IsDefined() {
		result.AddError(nil, errCacheRedisWithoutRedis)
	}
}

func validateConfigProxy(result *ct.ValidationResult, c *Config) {
	if c.Proxy.NTLMAuth && (!c.Proxy.URL.IsDefined() || c.Proxy.User == "" || c.Proxy.Password == "") {
		result.AddError(nil, errNTLMWithoutCredentials)
	}
}

func validateTopology(
	result *ct.ValidationResult,
	nodes map[string]*NodeConfig,
	methods map[string]*MethodConfig,
	loggers ldlog.Loggers,
) {
	for _, address := range sortedKeys(nodes) {
		if nodes[address].Capacity < 0 {
			result.AddError(nil, errNodeNegativeCapacity(address))
		}
	}
	for _, method := range sortedKeys(methods) {
		mc := methods[method]
		if len(mc.Node) == 0 {
			result.AddError(nil, errMethodWithoutNodes(method))
			continue
		}
		for _, address := range mc.Node {
			if _, ok := nodes[address]; !ok {
				loggers.Warn(warnMethodNamesUnknownNode(method, address))
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
