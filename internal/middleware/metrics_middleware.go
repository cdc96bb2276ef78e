package middleware

import (
	"net/http"

	"github.com/rpcrelay/rpc-relay/internal/metrics"

	"github.com/gorilla/mux"
)

// RequestCount is a middleware function that counts each request by route template and HTTP method.
func RequestCount(manager *metrics.Manager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if manager == nil {
				next.ServeHTTP(w, req)
				return
			}
			route := req.URL.Path
			if r := mux.CurrentRoute(req); r != nil {
				if tmpl, err := r.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			manager.WithRouteCount(req.Context(), route, req.Method, func() {
				next.ServeHTTP(w, req)
			})
		})
	}
}
