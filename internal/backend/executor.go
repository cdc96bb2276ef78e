// Package backend executes JSON-RPC calls on backend nodes over HTTP.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rpcrelay/rpc-relay/internal/dispatch"
	"github.com/rpcrelay/rpc-relay/internal/httpconfig"
	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

const (
	// CallCostHeader is an optional response header in which a node reports the actual cost of a call.
	CallCostHeader = "X-Call-Cost"

	// DefaultMaxResponseSize limits how much of a node's response body is read.
	DefaultMaxResponseSize = 10 * 1024 * 1024
)

var errResponseIDMismatch = errors.New("node returned a response for a different request id")

func errNoEndpoint(address string) error {
	return fmt.Errorf("node %q has no endpoint configured", address)
}

func errHTTPStatus(status int) error {
	return fmt.Errorf("node returned HTTP status %d", status)
}

func errBadResponse(err error) error {
	return fmt.Errorf("node returned an invalid JSON-RPC response: %w", err)
}

// Executor is a dispatch.Executor that sends each call to the node's Endpoint as a JSON-RPC 2.0 POST.
// The relay assigns its own id to each outgoing request, so callers' ids never reach the node.
type Executor struct {
	client          *http.Client
	userAgent       string
	maxResponseSize int64
	nextID          uint64
	loggers         ldlog.Loggers
}

var _ dispatch.Executor = (*Executor)(nil)

// NewExecutor creates an Executor using the HTTP client settings from httpConfig.
func NewExecutor(httpConfig httpconfig.HTTPConfig, loggers ldlog.Loggers) *Executor {
	return &Executor{
		client:          httpConfig.Client(),
		userAgent:       httpConfig.UserAgent,
		maxResponseSize: DefaultMaxResponseSize,
		loggers:         loggers,
	}
}

// Execute implements dispatch.Executor. If the node answers with a JSON-RPC error, it is returned as a
// *jsonrpc.Error.
func (e *Executor) Execute(ctx context.Context, node registry.Node, req jsonrpc.Request) (dispatch.Result, error) {
	if node.Endpoint == "" {
		return dispatch.Result{}, errNoEndpoint(node.Address)
	}

	id := ldvalue.Float64(float64(atomic.AddUint64(&e.nextID, 1)))
	body, err := req.WithID(id).MarshalJSON()
	if err != nil { // COVERAGE: a validated request can always be marshaled
		return dispatch.Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, node.Endpoint, bytes.NewReader(body))
	if err != nil {
		return dispatch.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}

	if e.loggers.IsDebugEnabled() {
		e.loggers.Debugf("Sending %q to node %q at %s", req.Method, node.Address, util.RedactURL(node.Endpoint))
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return dispatch.Result{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return dispatch.Result{}, errHTTPStatus(resp.StatusCode)
	}

	reader, err := util.NewBodyReader(resp.Body, strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip"),
		e.maxResponseSize)
	if err != nil {
		return dispatch.Result{}, errBadResponse(err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return dispatch.Result{}, err
	}

	rpcResp, err := jsonrpc.ParseResponse(data)
	if err != nil {
		return dispatch.Result{}, errBadResponse(err)
	}
	if !rpcResp.ID.Equal(id) {
		return dispatch.Result{}, errResponseIDMismatch
	}
	if rpcResp.Error != nil {
		return dispatch.Result{}, rpcResp.Error
	}
	result := dispatch.Result{Value: rpcResp.Result}
	result.Cost, result.CostReported = e.parseCost(resp.Header, node)
	return result, nil
}

func (e *Executor) parseCost(header http.Header, node registry.Node) (int64, bool) {
	value := header.Get(CallCostHeader)
	if value == "" {
		return 0, false
	}
	cost, err := strconv.ParseInt(value, 10, 64)
	if err != nil || cost < 0 {
		e.loggers.Warnf("Ignoring invalid %s header %q from node %q", CallCostHeader, value, node.Address)
		return 0, false
	}
	return cost, true
}
