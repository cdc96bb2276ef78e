// Package dispatch runs JSON-RPC calls through validation, node selection, execution, and response
// assembly, for both single requests and batches.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/selector"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultCallTimeout is used if Options.CallTimeout is not set.
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxBatchConcurrency is used if Options.MaxBatchConcurrency is not set.
	DefaultMaxBatchConcurrency = 10
)

// Options are the optional parameters for NewDispatcher.
type Options struct {
	// CallTimeout bounds each call to an Executor. A negative value disables the timeout.
	CallTimeout time.Duration
	// MaxBatchSize is the largest number of requests allowed in one batch; zero means no limit.
	MaxBatchSize int
	// MaxBatchConcurrency is the number of batch elements that may execute at the same time.
	MaxBatchConcurrency int
	Cache               ResultCache
	Observer            Observer
}

// Dispatcher is the relay engine's entry point for calls.
type Dispatcher struct {
	selector       *selector.Selector
	executor       Executor
	cache          ResultCache
	observer       Observer
	callTimeout    time.Duration
	maxBatchSize   int
	maxConcurrency int
	loggers        ldlog.Loggers
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sel *selector.Selector, executor Executor, options Options, loggers ldlog.Loggers) *Dispatcher {
	d := &Dispatcher{
		selector:       sel,
		executor:       executor,
		cache:          options.Cache,
		observer:       options.Observer,
		callTimeout:    options.CallTimeout,
		maxBatchSize:   options.MaxBatchSize,
		maxConcurrency: options.MaxBatchConcurrency,
		loggers:        loggers,
	}
	if d.callTimeout == 0 {
		d.callTimeout = DefaultCallTimeout
	}
	if d.maxConcurrency <= 0 {
		d.maxConcurrency = DefaultMaxBatchConcurrency
	}
	return d
}

// ExecuteJSONRPCRequest validates and executes one raw request object. Any failure is returned as an
// error response; if the request could not be parsed at all, the response id is null.
func (d *Dispatcher) ExecuteJSONRPCRequest(ctx context.Context, raw []byte) jsonrpc.Response {
	return d.dispatchParsed(ctx, jsonrpc.ParseRequest(raw))
}

// ExecuteBatchJSONRPCRequests executes a batch in which each element is a separate raw request
// object. Each element goes through the same steps as ExecuteJSONRPCRequest independently, and the
// responses are returned in the same order as the requests. If the batch is empty or too large, the
// result is a single InvalidBatch error response.
func (d *Dispatcher) ExecuteBatchJSONRPCRequests(ctx context.Context, raws [][]byte) []jsonrpc.Response {
	if err := d.checkBatchSize(len(raws)); err != nil {
		return []jsonrpc.Response{jsonrpc.ErrorResponseForID(ldvalue.Null(), err)}
	}
	elements := make([]jsonrpc.Parsed, len(raws))
	for i, raw := range raws {
		elements[i] = jsonrpc.ParseRequest(raw)
	}
	return d.dispatchAll(ctx, elements)
}

// ExecutePayload executes a raw request body that may be either a single request or a JSON array
// batch. The second return value is true if the body was a batch. If the body as a whole is invalid,
// the result is one error response and isBatch is false.
func (d *Dispatcher) ExecutePayload(ctx context.Context, raw []byte) (responses []jsonrpc.Response, isBatch bool) {
	payload, err := jsonrpc.ParsePayload(raw)
	if err == nil && payload.Batch {
		err = d.checkBatchSize(len(payload.Elements))
	}
	if err != nil {
		return []jsonrpc.Response{jsonrpc.ErrorResponseForID(ldvalue.Null(), err)}, false
	}
	return d.dispatchAll(ctx, payload.Elements), payload.Batch
}

// Dispatch executes an already-validated request.
func (d *Dispatcher) Dispatch(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	c := d.startCall(req)

	if d.cache != nil && d.selector.HasEligibleNode(req.Method) {
		if value, ok := d.cache.Get(ctx, req); ok {
			return c.complete(ctx, OutcomeCached, jsonrpc.ResultResponse(req, value))
		}
	}

	reservation, err := d.selector.Reserve(req.Method)
	if err != nil {
		return c.fail(ctx, jsonrpc.NewErrorf(jsonrpc.NoEligibleNode, "no registered node with capacity is authorized for %q",
			req.Method))
	}
	c.node = reservation.Node.Address
	c.cost = reservation.Amount
	c.to(NodeSelected)

	c.to(Executing)
	result, err := d.execute(ctx, reservation.Node, req)
	if err != nil {
		d.selector.Cancel(reservation)
		return c.fail(ctx, d.describeFailure(c, err))
	}

	if result.CostReported && result.Cost != reservation.Amount {
		if err := d.selector.Settle(reservation, result.Cost); err != nil {
			d.loggers.Warnf("Call to %q on node %q cost %d but only %d was reserved: %s",
				req.Method, reservation.Node.Address, result.Cost, reservation.Amount, err)
		} else {
			c.cost = result.Cost
		}
	}
	if d.cache != nil {
		d.cache.Put(ctx, req, result.Value)
	}
	return c.complete(ctx, OutcomeSuccess, jsonrpc.ResultResponse(req, result.Value))
}

func (d *Dispatcher) dispatchParsed(ctx context.Context, p jsonrpc.Parsed) jsonrpc.Response {
	if !p.OK() {
		if d.loggers.IsDebugEnabled() {
			d.loggers.Debugf("Rejected invalid request (id=%s): %s", p.ID.JSONString(), p.Err)
		}
		d.observe(ctx, CallInfo{Outcome: p.Err.Kind().String()})
		return p.ErrorResponse()
	}
	return d.Dispatch(ctx, *p.Request)
}

func (d *Dispatcher) dispatchAll(ctx context.Context, elements []jsonrpc.Parsed) []jsonrpc.Response {
	out := make([]jsonrpc.Response, len(elements))
	if len(elements) == 1 {
		out[0] = d.dispatchParsed(ctx, elements[0])
		return out
	}
	var g errgroup.Group
	g.SetLimit(d.maxConcurrency)
	for i, el := range elements {
		i, el := i, el
		g.Go(func() error {
			out[i] = d.dispatchParsed(ctx, el)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (d *Dispatcher) execute(ctx context.Context, node registry.Node, req jsonrpc.Request) (Result, error) {
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	type outcome struct {
		result Result
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		r, err := d.executor.Execute(ctx, node, req)
		ch <- outcome{r, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return o.result, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (d *Dispatcher) describeFailure(c *call, err error) *jsonrpc.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		d.loggers.Warnf("Call to %q on node %q timed out", c.method, c.node)
		return jsonrpc.NewErrorf(jsonrpc.Timeout, "node %q did not respond in time", c.node)
	}
	d.loggers.Warnf("Call to %q on node %q failed: %s", c.method, c.node, err)
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		data := ldvalue.ObjectBuild().
			Set("code", ldvalue.Int(rpcErr.Code)).
			Set("message", ldvalue.String(rpcErr.Message))
		if !rpcErr.Data.IsNull() {
			data.Set("data", rpcErr.Data)
		}
		return jsonrpc.NewErrorWithData(jsonrpc.ExecutionError, data.Build())
	}
	return jsonrpc.NewError(jsonrpc.ExecutionError, err.Error())
}

func (d *Dispatcher) checkBatchSize(n int) *jsonrpc.Error {
	if n == 0 {
		return jsonrpc.NewError(jsonrpc.InvalidBatch, "batch must contain at least one request")
	}
	if d.maxBatchSize > 0 && n > d.maxBatchSize {
		return jsonrpc.NewErrorf(jsonrpc.InvalidBatch, "batch of %d requests exceeds the limit of %d", n, d.maxBatchSize)
	}
	return nil
}

func (d *Dispatcher) observe(ctx context.Context, info CallInfo) {
	if d.observer != nil {
		d.observer.CallCompleted(ctx, info)
	}
}
