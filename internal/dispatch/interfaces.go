package dispatch

import (
	"context"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Result is what an Executor returns for a successful call.
type Result struct {
	Value ldvalue.Value
	// Cost is the actual capacity cost of the call. It is only used if CostReported is true; otherwise
	// the reserved estimate stands.
	Cost         int64
	CostReported bool
}

// Executor runs a validated request on a chosen node. If the node answers with a JSON-RPC error, the
// Executor should return it as a *jsonrpc.Error so that it can be passed back to the caller.
//
// Execute should return promptly when ctx is done, but the Dispatcher does not depend on that.
type Executor interface {
	Execute(ctx context.Context, node registry.Node, req jsonrpc.Request) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, node registry.Node, req jsonrpc.Request) (Result, error)

// Execute calls the function.
func (f ExecutorFunc) Execute(ctx context.Context, node registry.Node, req jsonrpc.Request) (Result, error) {
	return f(ctx, node, req)
}

// ResultCache stores results of cacheable calls. Implementations decide which methods are cacheable;
// Get reports false for any method they do not cache.
type ResultCache interface {
	Get(ctx context.Context, req jsonrpc.Request) (ldvalue.Value, bool)
	Put(ctx context.Context, req jsonrpc.Request, result ldvalue.Value)
}

// Outcome values reported in CallInfo for calls that did not fail. Failed calls report the name of
// their jsonrpc.Kind.
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
)

// CallInfo describes a finished call for an Observer.
type CallInfo struct {
	Method   string
	Node     string
	Outcome  string
	Cost     int64
	Duration time.Duration
}

// Observer is notified when each call finishes.
type Observer interface {
	CallCompleted(ctx context.Context, info CallInfo)
}
