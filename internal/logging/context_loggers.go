package logging

import (
	"context"
	"net/http"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/pborman/uuid"
)

type contextKey string

const (
	contextLoggersKey contextKey = "ContextLoggers"
	requestIDKey      contextKey = "RequestID"
)

// RequestIDHeader is the response header that carries the ID assigned to each request.
const RequestIDHeader = "X-Relay-Request-Id"

// GetContextLoggers returns the Loggers associated with this request context. If no loggers were
// attached, it returns disabled loggers.
func GetContextLoggers(ctx context.Context) ldlog.Loggers {
	if l, ok := ctx.Value(contextLoggersKey).(ldlog.Loggers); ok {
		return l
	}
	return ldlog.NewDisabledLoggers()
}

// GetRequestID returns the ID assigned to this request context by ContextLoggersMiddleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContextLoggers returns a context carrying the given loggers.
func WithContextLoggers(ctx context.Context, loggers ldlog.Loggers) context.Context {
	return context.WithValue(ctx, contextLoggersKey, loggers)
}

// ContextLoggersMiddleware assigns a short random ID to each HTTP request and attaches loggers whose
// messages are prefixed with that ID, so that all the log output for one relayed call or batch can be
// correlated. The ID is also returned to the caller in the X-Relay-Request-Id header.
func ContextLoggersMiddleware(loggers ldlog.Loggers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.New()[:8]
			requestLoggers := loggers
			requestLoggers.SetPrefix("[req:" + id + "]")
			ctx := context.WithValue(WithContextLoggers(r.Context(), requestLoggers), requestIDKey, id)
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
