package relay

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/jsonrpc"
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// rpcHandler accepts a JSON-RPC request object or batch array and writes the response. Every
// JSON-RPC level failure, including a body that is not JSON, is reported as a JSON-RPC error with
// status 200; only transport problems get a different status. If every request was a notification,
// the response is 204 with no body.
func rpcHandler(r *Relay) http.Handler {
	maxBytes := int64(r.config.Main.MaxRequestSize.GetOrElse(config.DefaultMaxRequestSize))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		loggers := logging.GetContextLoggers(req.Context())

		isGzipped := strings.EqualFold(req.Header.Get("Content-Encoding"), "gzip")
		body, err := util.NewBodyReader(req.Body, isGzipped, maxBytes)
		if err != nil {
			loggers.Debugf("Could not decompress request body: %s", err)
			writeRPCError(w, jsonrpc.NewError(jsonrpc.ParseError, "request body is not valid gzip data"))
			return
		}
		data, err := io.ReadAll(body)
		_ = body.Close()
		if err != nil {
			if errors.Is(err, util.ErrBodyTooLarge) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write(util.ErrorJSONMsgf("request body must not exceed %d bytes", maxBytes))
				return
			}
			loggers.Debugf("Could not read request body: %s", err)
			writeRPCError(w, jsonrpc.NewError(jsonrpc.ParseError, "unable to read request body"))
			return
		}

		responses, isBatch := r.dispatcher.ExecutePayload(req.Context(), data)
		out := jsonrpc.EncodeResponses(responses, isBatch)
		if out == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})
}

func writeRPCError(w http.ResponseWriter, rpcErr *jsonrpc.Error) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonrpc.EncodeResponses(
		[]jsonrpc.Response{jsonrpc.ErrorResponseForID(ldvalue.Null(), rpcErr)}, false))
}
