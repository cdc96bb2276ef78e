package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/metrics"
	st "github.com/rpcrelay/rpc-relay/internal/sharedtest"

	"github.com/launchdarkly/go-sdk-common/v3/ldlogtest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCountUsesRouteTemplate(t *testing.T) {
	mockLog := ldlogtest.NewMockLog()
	defer mockLog.DumpIfTestFailed(t)
	manager, err := metrics.NewManager(config.MetricsConfig{}, mockLog.Loggers)
	require.NoError(t, err)
	defer manager.Close()

	router := mux.NewRouter()
	router.Use(RequestCount(manager))
	router.Handle("/admin/nodes/{address}", okHandler()).Methods("DELETE")

	exporter := st.NewTestMetricsExporter()
	exporter.WithExporter(func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, st.BuildRequest("DELETE", "/admin/nodes/node1", nil, nil))
		assert.Equal(t, http.StatusOK, w.Code)

		expectedTags := map[string]string{
			"relayId":    manager.RelayID(),
			"route":      "_admin_nodes_{address}",
			"httpMethod": "DELETE",
		}
		exporter.AwaitData(t, time.Second*2, mockLog.Loggers, func(d st.TestMetricsData) bool {
			return d.HasRow("requests", st.TestMetricsRow{Tags: expectedTags, Count: 1})
		})
	})
}

func TestRequestCountWithoutManagerPassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	RequestCount(nil)(okHandler()).ServeHTTP(w, st.BuildRequest("GET", "/status", nil, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
