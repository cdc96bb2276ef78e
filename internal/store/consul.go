package store

import (
	"context"
	"net/url"
	"strings"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	consul "github.com/hashicorp/consul/api"
)

// consulPersister keeps each record under its own key: "<prefix>/nodes/<address>" and
// "<prefix>/methods/<method>", with the last path segment escaped.
type consulPersister struct {
	kv      *consul.KV
	prefix  string
	loggers ldlog.Loggers
}

func newConsulPersister(dbConfig config.ConsulConfig, prefix string, loggers ldlog.Loggers) (*consulPersister, error) {
	consulConfig := consul.DefaultConfig()
	if dbConfig.Token != "" {
		consulConfig.Token = dbConfig.Token
	} else if dbConfig.TokenFile != "" {
		consulConfig.TokenFile = dbConfig.TokenFile
	}
	consulConfig.Address = dbConfig.Host
	client, err := consul.NewClient(consulConfig)
	if err != nil {
		return nil, err
	}
	return &consulPersister{kv: client.KV(), prefix: prefix, loggers: loggers}, nil
}

func (p *consulPersister) nodesPath() string   { return p.prefix + "/nodes/" }
func (p *consulPersister) methodsPath() string { return p.prefix + "/methods/" }

func (p *consulPersister) Load(ctx context.Context) (registry.State, error) {
	var b stateBuilder
	queryOptions := (&consul.QueryOptions{RequireConsistent: true}).WithContext(ctx)

	nodes, _, err := p.kv.List(p.nodesPath(), queryOptions)
	if err != nil {
		return registry.State{}, err
	}
	for _, pair := range nodes {
		b.addNode(pair.Value)
	}

	methods, _, err := p.kv.List(p.methodsPath(), queryOptions)
	if err != nil {
		return registry.State{}, err
	}
	for _, pair := range methods {
		method, err := url.PathUnescape(strings.TrimPrefix(pair.Key, p.methodsPath()))
		if err != nil {
			b.skip(err)
			continue
		}
		b.addMethod(method, pair.Value)
	}

	logSkipped(p.loggers, "Consul", &b)
	return b.state, nil
}

func (p *consulPersister) PutNode(ctx context.Context, node registry.Node) error {
	return p.put(ctx, p.nodesPath()+url.PathEscape(node.Address), encodeNode(node))
}

func (p *consulPersister) DeleteNode(ctx context.Context, address string) error {
	_, err := p.kv.Delete(p.nodesPath()+url.PathEscape(address), (&consul.WriteOptions{}).WithContext(ctx))
	return err
}

func (p *consulPersister) PutMethod(ctx context.Context, method string, addresses []string) error {
	return p.put(ctx, p.methodsPath()+url.PathEscape(method), encodeAddresses(addresses))
}

func (p *consulPersister) Close() error {
	return nil
}

func (p *consulPersister) put(ctx context.Context, key string, value []byte) error {
	_, err := p.kv.Put(&consul.KVPair{Key: key, Value: value}, (&consul.WriteOptions{}).WithContext(ctx))
	return err
}
