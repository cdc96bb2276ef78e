package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	ct "github.com/launchdarkly/go-configtypes"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

const (
	nodeCapacityVarPrefix = "NODE_CAPACITY_"
	methodNodesVarPrefix  = "METHOD_NODES_"
	datadogTagVarPrefix   = "DATADOG_TAG_"
)

var errNotValidInteger = errors.New("not a valid integer") //nolint:gochecknoglobals

// LoadConfigFromEnvironment sets parameters in a Config struct from environment variables.
//
// The Config parameter may already contain values; variables that are set override them.
func LoadConfigFromEnvironment(c *Config, loggers ldlog.Loggers) error {
	reader := ct.NewVarReaderFromEnvironment()

	reader.ReadStruct(&c.Main, false)

	readNodesFromEnvironment(c, reader)
	readMethodsFromEnvironment(c, reader)

	useRedis := false
	reader.Read("USE_REDIS", &useRedis)
	if useRedis || c.Redis.Host != "" || c.Redis.URL.IsDefined() {
		portStr := ""
		if c.Redis.Port.IsDefined() {
			portStr = fmt.Sprintf("%d", c.Redis.Port.GetOrElse(0))
		}
		reader.ReadStruct(&c.Redis, false)
		reader.Read("REDIS_PORT", &portStr) // handled separately because it could be a string or a number

		if portStr != "" {
			if strings.HasPrefix(portStr, "tcp://") {
				// REDIS_PORT gets set to tcp://$docker_ip:6379 when linking to a Redis container
				hostAndPort := strings.TrimPrefix(portStr, "tcp://")
				fields := strings.Split(hostAndPort, ":")
				c.Redis.Host = fields[0]
				if len(fields) > 1 {
					if err := c.Redis.Port.UnmarshalText([]byte(fields[1])); err != nil {
						reader.AddError(ct.ValidationPath{"REDIS_PORT"}, err)
					}
				}
			} else {
				if c.Redis.Host == "" {
					c.Redis.Host = defaultRedisHost
				}
				reader.Read("REDIS_PORT", &c.Redis.Port)
			}
		}
		if !c.Redis.URL.IsDefined() && c.Redis.Host == "" && !c.Redis.Port.IsDefined() {
			// all they specified was USE_REDIS
			c.Redis.URL = defaultRedisURL
		}
	}

	useConsul := false
	reader.Read("USE_CONSUL", &useConsul)
	if useConsul {
		if c.Consul.Host == "" {
			c.Consul.Host = defaultConsulHost
		}
		reader.ReadStruct(&c.Consul, false)
	}

	reader.Read("USE_DYNAMODB", &c.DynamoDB.Enabled)
	if c.DynamoDB.Enabled {
		reader.ReadStruct(&c.DynamoDB, false)
	}

	reader.ReadStruct(&c.Cache, false)

	reader.ReadStruct(&c.MetricsConfig.Datadog, false)
	if c.MetricsConfig.Datadog.Enabled {
		for tagName, tagVal := range reader.FindPrefixedValues(datadogTagVarPrefix) {
			c.MetricsConfig.Datadog.Tag = append(c.MetricsConfig.Datadog.Tag, tagName+":"+tagVal)
		}
		sort.Strings(c.MetricsConfig.Datadog.Tag) // for test determinacy
	}

	reader.ReadStruct(&c.MetricsConfig.Stackdriver, false)
	reader.ReadStruct(&c.MetricsConfig.Prometheus, false)

	reader.ReadStruct(&c.Proxy, false)

	if !reader.Result().OK() {
		return reader.Result().GetError()
	}

	return ValidateConfig(c, loggers)
}

// Nodes are set with NODE_CAPACITY_<address>, plus optionally NODE_ENDPOINT_<address>.
func readNodesFromEnvironment(c *Config, reader *ct.VarReader) {
	for address, capacityStr := range reader.FindPrefixedValues(nodeCapacityVarPrefix) {
		var nc NodeConfig
		if c.Node[address] != nil {
			nc = *c.Node[address]
		}
		capacity, err := strconv.ParseInt(strings.TrimSpace(capacityStr), 10, 64)
		if err != nil {
			reader.AddError(ct.ValidationPath{nodeCapacityVarPrefix + address}, errNotValidInteger)
			continue
		}
		nc.Capacity = capacity
		reader.WithVarNameSuffix(address).ReadStruct(&nc, false)
		if c.Node == nil {
			c.Node = make(map[string]*NodeConfig)
		}
		c.Node[address] = &nc
	}
}

// Methods are set with METHOD_NODES_<method>=address1,address2, plus optionally METHOD_COST_<method>.
func readMethodsFromEnvironment(c *Config, reader *ct.VarReader) {
	for method, nodesStr := range reader.FindPrefixedValues(methodNodesVarPrefix) {
		var mc MethodConfig
		if c.Method[method] != nil {
			mc = *c.Method[method]
		}
		for _, address := range strings.Split(nodesStr, ",") {
			if address = strings.TrimSpace(address); address != "" {
				mc.Node = append(mc.Node, address)
			}
		}
		reader.WithVarNameSuffix(method).ReadStruct(&mc, false)
		if c.Method == nil {
			c.Method = make(map[string]*MethodConfig)
		}
		c.Method[method] = &mc
	}
}
