package dispatch

import (
	"context"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// call tracks one request through the dispatcher for logging and metrics.
type call struct {
	d       *Dispatcher
	method  string
	id      ldvalue.Value
	node    string
	cost    int64
	state   State
	started time.Time
}

func (d *Dispatcher) startCall(req jsonrpc.Request) *call {
	c := &call{d: d, method: req.Method, id: req.ID, started: time.Now()}
	c.to(Received)
	c.to(Validated)
	return c
}

func (c *call) to(s State) {
	c.state = s
	if c.d.loggers.IsDebugEnabled() {
		if c.node == "" {
			c.d.loggers.Debugf("Call %q (id=%s): %s", c.method, c.id.JSONString(), s)
		} else {
			c.d.loggers.Debugf("Call %q (id=%s) on node %q: %s", c.method, c.id.JSONString(), c.node, s)
		}
	}
}

func (c *call) complete(ctx context.Context, outcome string, resp jsonrpc.Response) jsonrpc.Response {
	if outcome == OutcomeCached {
		c.cost = 0
	}
	c.to(Completed)
	c.report(ctx, outcome)
	return resp
}

func (c *call) fail(ctx context.Context, err *jsonrpc.Error) jsonrpc.Response {
	c.to(Failed)
	c.cost = 0
	c.report(ctx, err.Kind().String())
	return jsonrpc.ErrorResponse(jsonrpc.Request{Method: c.method, ID: c.id}, err)
}

func (c *call) report(ctx context.Context, outcome string) {
	c.d.observe(ctx, CallInfo{
		Method:   c.method,
		Node:     c.node,
		Outcome:  outcome,
		Cost:     c.cost,
		Duration: time.Since(c.started),
	})
}
