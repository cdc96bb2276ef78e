package logging

import (
	"net/http"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// RequestLoggerMiddleware decorates a Handler with debug-level logging of all requests. Authorization
// header values are never logged in full.
func RequestLoggerMiddleware(loggers ldlog.Loggers) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !loggers.IsDebugEnabled() {
				next.ServeHTTP(w, req)
				return
			}
			wrappedWriter := loggingHTTPResponseWriter{loggers: loggers, writer: w, request: req, started: time.Now()}
			next.ServeHTTP(&wrappedWriter, req)
			wrappedWriter.logRequest()
		})
	}
}

type loggingHTTPResponseWriter struct {
	loggers      ldlog.Loggers
	writer       http.ResponseWriter
	request      *http.Request
	started      time.Time
	statusCode   int
	streaming    bool
	bytesWritten uint64
}

func (w *loggingHTTPResponseWriter) Header() http.Header {
	return w.writer.Header()
}

func (w *loggingHTTPResponseWriter) Write(data []byte) (int, error) {
	if w.statusCode == 0 {
		w.WriteHeader(http.StatusOK)
	}
	w.bytesWritten += uint64(len(data))
	return w.writer.Write(data)
}

func (w *loggingHTTPResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	if strings.Contains(w.writer.Header().Get("Content-Type"), "text/event-stream") {
		w.streaming = true
		w.logRequest() // the admin event feed is logged when it opens as well as when it closes
	}
	w.writer.WriteHeader(statusCode)
}

func (w *loggingHTTPResponseWriter) logRequest() {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	authStr := obscureAuthorization(w.request.Header.Get("Authorization"))
	switch {
	case !w.streaming:
		w.loggers.Debugf("Request: method=%s url=%s auth=%s status=%d bytes=%d duration=%s",
			w.request.Method,
			w.request.URL,
			authStr,
			w.statusCode,
			w.bytesWritten,
			time.Since(w.started),
		)
	case w.bytesWritten == 0:
		w.loggers.Debugf("Request: method=%s url=%s auth=%s status=%d (streaming)",
			w.request.Method,
			w.request.URL,
			authStr,
			w.statusCode,
		)
	default:
		w.loggers.Debugf("Stream closed: url=%s auth=%s bytes=%d",
			w.request.URL,
			authStr,
			w.bytesWritten,
		)
	}
}

// Flush is required because the event feed handler needs an http.Flusher.
func (w *loggingHTTPResponseWriter) Flush() {
	if f, ok := w.writer.(http.Flusher); ok {
		f.Flush()
	}
}

func obscureAuthorization(value string) string {
	switch {
	case value == "":
		return "n/a"
	case len(value) > 8:
		return "*" + value[len(value)-4:]
	default:
		return "*"
	}
}
