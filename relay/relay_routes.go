package relay

import (
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/internal/middleware"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/gorilla/mux"
)

// makeRouter creates and configures a Router containing all of the standard routes for the relay.
//
// IMPORTANT: The route strings that are used here, such as "/admin/nodes/{address}", will appear in
// metrics data under the "route" tag if the relay is configured to export metrics. Therefore, we should
// use variable names like {address} consistently.
func (r *Relay) makeRouter() *mux.Router {
	router := mux.NewRouter()
	// Node addresses and method names may contain slashes, which clients will have escaped.
	router.UseEncodedPath()
	router.Use(logging.ContextLoggersMiddleware(r.loggers))
	if r.loggers.GetMinLevel() == ldlog.Debug {
		router.Use(logging.RequestLoggerMiddleware(r.loggers))
	}
	router.Handle("/status", statusHandler(r)).Methods("GET")

	rpcMiddlewareStack := middleware.Chain(
		middleware.CORS,
		middleware.RequestCount(r.metricsManager),
	)
	rpc := rpcMiddlewareStack(rpcHandler(r))
	router.Handle("/", rpc).Methods("POST", "OPTIONS")
	router.Handle("/rpc", rpc).Methods("POST", "OPTIONS")

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(
		middleware.AdminAuth(r.config.Main.AdminKey),
		middleware.RequestCount(r.metricsManager),
	)
	adminRouter.HandleFunc("/nodes", listNodesHandler(r)).Methods("GET")
	adminRouter.HandleFunc("/nodes/{address}", registerNodeHandler(r)).Methods("PUT")
	adminRouter.HandleFunc("/nodes/{address}", getNodeHandler(r)).Methods("GET")
	adminRouter.HandleFunc("/nodes/{address}", deregisterNodeHandler(r)).Methods("DELETE")
	adminRouter.HandleFunc("/methods", listMethodsHandler(r)).Methods("GET")
	adminRouter.HandleFunc("/methods/{method}/nodes", getMethodNodesHandler(r)).Methods("GET")
	adminRouter.HandleFunc("/methods/{method}/nodes", allowMethodNodesHandler(r)).Methods("POST")
	adminRouter.Handle("/events", middleware.Streaming(r.feed.Handler())).Methods("GET")

	return router
}
