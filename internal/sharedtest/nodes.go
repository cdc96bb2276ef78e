package sharedtest

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/rpcrelay/rpc-relay/internal/dispatch"
	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Method results used by the fake nodes in tests.
var (
	BalanceResult  = ldvalue.String("0x0234c8a3397aab58")
	GasPriceResult = ldvalue.String("0x09184e72a000")
)

// FakeNodeHandler returns an HTTP handler that behaves like a JSON-RPC backend node: it answers
// any method that has an entry in results, and returns a "method not found" error for anything else.
func FakeNodeHandler(results map[string]ldvalue.Value) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		parsed := jsonrpc.ParseRequest(body)
		var resp jsonrpc.Response
		switch {
		case !parsed.OK():
			resp = parsed.ErrorResponse()
		default:
			if value, ok := results[parsed.Request.Method]; ok {
				resp = jsonrpc.ResultResponse(*parsed.Request, value)
			} else {
				resp = jsonrpc.ErrorResponse(*parsed.Request, &jsonrpc.Error{Code: -32601, Message: "method not found"})
			}
		}
		data, _ := resp.MarshalJSON()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
}

// RecordingExecutor is a dispatch.Executor that returns canned results without any network access,
// and remembers which node each call went to.
type RecordingExecutor struct {
	Results map[string]ldvalue.Value
	calls   []ExecutedCall
	lock    sync.Mutex
}

// ExecutedCall is one call seen by a RecordingExecutor.
type ExecutedCall struct {
	Node   string
	Method string
}

// NewRecordingExecutor creates a RecordingExecutor that answers eth_getBalance and eth_gasPrice.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{Results: map[string]ldvalue.Value{
		"eth_getBalance": BalanceResult,
		"eth_gasPrice":   GasPriceResult,
	}}
}

// Execute implements dispatch.Executor.
func (e *RecordingExecutor) Execute(ctx context.Context, node registry.Node, req jsonrpc.Request) (dispatch.Result, error) {
	e.lock.Lock()
	e.calls = append(e.calls, ExecutedCall{Node: node.Address, Method: req.Method})
	e.lock.Unlock()
	if value, ok := e.Results[req.Method]; ok {
		return dispatch.Result{Value: value}, nil
	}
	return dispatch.Result{}, &jsonrpc.Error{Code: -32601, Message: "method not found"}
}

// Calls returns a copy of the calls seen so far.
func (e *RecordingExecutor) Calls() []ExecutedCall {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]ExecutedCall(nil), e.calls...)
}
