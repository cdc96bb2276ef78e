package store

import (
	"context"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	redigo "github.com/gomodule/redigo/redis"
)

const (
	redisMaxIdle     = 20
	redisIdleTimeout = 5 * time.Minute
)

// redisPersister keeps nodes and method authorizations in two Redis hashes, "<prefix>:nodes" and
// "<prefix>:methods", keyed by node address and method name.
type redisPersister struct {
	pool    *redigo.Pool
	prefix  string
	loggers ldlog.Loggers
}

func newRedisPersister(redisURL, password, prefix string, loggers ldlog.Loggers) *redisPersister {
	var dialOptions []redigo.DialOption
	if password != "" {
		dialOptions = append(dialOptions, redigo.DialPassword(password))
	}
	pool := &redigo.Pool{
		MaxIdle:     redisMaxIdle,
		IdleTimeout: redisIdleTimeout,
		Dial: func() (redigo.Conn, error) {
			return redigo.DialURL(redisURL, dialOptions...)
		},
	}
	return &redisPersister{pool: pool, prefix: prefix, loggers: loggers}
}

func (p *redisPersister) nodesKey() string   { return p.prefix + ":nodes" }
func (p *redisPersister) methodsKey() string { return p.prefix + ":methods" }

func (p *redisPersister) Load(ctx context.Context) (registry.State, error) {
	conn, err := p.pool.GetContext(ctx)
	if err != nil {
		return registry.State{}, err
	}
	defer conn.Close() //nolint:errcheck

	nodes, err := redigo.StringMap(conn.Do("HGETALL", p.nodesKey()))
	if err != nil {
		return registry.State{}, err
	}
	methods, err := redigo.StringMap(conn.Do("HGETALL", p.methodsKey()))
	if err != nil {
		return registry.State{}, err
	}

	var b stateBuilder
	for _, data := range nodes {
		b.addNode([]byte(data))
	}
	for method, data := range methods {
		b.addMethod(method, []byte(data))
	}
	logSkipped(p.loggers, "Redis", &b)
	return b.state, nil
}

func (p *redisPersister) PutNode(ctx context.Context, node registry.Node) error {
	return p.do(ctx, "HSET", p.nodesKey(), node.Address, encodeNode(node))
}

func (p *redisPersister) DeleteNode(ctx context.Context, address string) error {
	return p.do(ctx, "HDEL", p.nodesKey(), address)
}

func (p *redisPersister) PutMethod(ctx context.Context, method string, addresses []string) error {
	return p.do(ctx, "HSET", p.methodsKey(), method, encodeAddresses(addresses))
}

func (p *redisPersister) Close() error {
	return p.pool.Close()
}

func (p *redisPersister) do(ctx context.Context, command string, args ...interface{}) error {
	conn, err := p.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck
	_, err = conn.Do(command, args...)
	return err
}
