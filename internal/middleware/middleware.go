package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rpcrelay/rpc-relay/internal/util"

	"github.com/gorilla/mux"
)

const (
	// DefaultAllowedOrigin is the Access-Control-Allow-Origin value used when the request has no Origin.
	DefaultAllowedOrigin = "*"

	allowedHeaders = "Cache-Control,Content-Type,Content-Length,Accept-Encoding,Content-Encoding,Authorization"
	maxAge         = "300"

	httpStatusMessageAdminDisabled    = "administrative endpoints are disabled because no admin key is configured"
	httpStatusMessageAdminKeyRequired = "missing or invalid admin key in Authorization header"
)

// Chain combines a series of middleware functions that will be applied in the same order.
func Chain(middlewares ...mux.MiddlewareFunc) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		handler := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}

// AdminAuth creates a middleware function that only allows requests whose Authorization header is the
// admin key, either by itself or with a "Bearer" prefix. If adminKey is empty, every request gets a
// 404, so the administrative surface does not exist unless it has been secured.
func AdminAuth(adminKey string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if adminKey == "" {
				writeJSONError(w, http.StatusNotFound, httpStatusMessageAdminDisabled)
				return
			}
			if !matchesKey(req.Header.Get("Authorization"), adminKey) {
				writeJSONError(w, http.StatusUnauthorized, httpStatusMessageAdminKeyRequired)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func matchesKey(authHeader, key string) bool {
	value := strings.TrimSpace(authHeader)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		value = strings.TrimSpace(value[7:])
	}
	return subtle.ConstantTimeCompare([]byte(value), []byte(key)) == 1
}

// CORS is a middleware function that sets CORS headers so that browser-based applications can call the
// relay directly. The allowed origin is the request's Origin, if any.
//
// If the HTTP method is OPTIONS, the rest of the chain is not called, since a preflight request should
// not do anything except set the response headers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := DefaultAllowedOrigin
		if o := r.Header.Get("Origin"); o != "" {
			origin = o
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		w.Header().Set("Access-Control-Max-Age", maxAge)
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Streaming is a middleware function that sets the appropriate headers on a streaming response.
func Streaming(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// If Nginx is being used as a proxy/load balancer, adding this header tells it not to buffer this response because
		// it is a streaming response. If Nginx is not being used, this header has no effect.
		w.Header().Add("X-Accel-Buffering", "no")
		next.ServeHTTP(w, req)
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(util.ErrorJSONMsg(message))
}
