package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/dispatch"
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/pborman/uuid"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

func errInitMetricsViews(err error) error { // COVERAGE: can't happen in unit tests (and should never happen at all)
	return fmt.Errorf("error registering metrics views: %w", err)
}

// Manager is the top-level object that controls all of our metrics exporter activity. It should be
// created and retained by the Relay instance, and closed when the Relay instance is closed.
//
// Manager implements dispatch.Observer, so it can be given to the dispatcher to record every call.
type Manager struct {
	openCensusCtx  context.Context
	metricsRelayID string
	exporters      exportersSet
	loggers        ldlog.Loggers
	closeOnce      sync.Once
	lock           sync.Mutex
}

// NewManager creates a Manager instance and registers any exporters that are enabled in the
// configuration.
func NewManager(metricsConfig config.MetricsConfig, loggers ldlog.Loggers) (*Manager, error) {
	metricsRelayID := uuid.New()

	exporters, err := registerExporters(allExporterTypes(), metricsConfig, loggers)
	if err != nil {
		return nil, err
	}

	registerViewsOnce.Do(func() {
		err = view.Register(getViews()...)
	})
	if err != nil { // COVERAGE: can't make this happen in unit tests
		closeExporters(exporters, loggers)
		return nil, errInitMetricsViews(err)
	}

	ctx, _ := tag.New(context.Background(), tag.Insert(relayIDTagKey, metricsRelayID))

	return &Manager{
		openCensusCtx:  ctx,
		metricsRelayID: metricsRelayID,
		exporters:      exporters,
		loggers:        loggers,
	}, nil
}

// RelayID returns the unique ID that tags all metrics from this Relay instance.
func (m *Manager) RelayID() string {
	return m.metricsRelayID
}

// GetOpenCensusContext returns the base context for recording metrics; it carries the relay ID tag.
func (m *Manager) GetOpenCensusContext() context.Context {
	return m.openCensusCtx
}

// Close shuts down all exporters.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.lock.Lock()
		exporters := m.exporters
		m.exporters = nil
		m.lock.Unlock()
		closeExporters(exporters, m.loggers)
	})
}

// CallCompleted records the count, latency, and cost of a finished call.
func (m *Manager) CallCompleted(ctx context.Context, info dispatch.CallInfo) {
	tagCtx, err := tag.New(m.openCensusCtx,
		tag.Insert(rpcMethodTagKey, sanitizeTagValue(info.Method)),
		tag.Insert(nodeTagKey, sanitizeTagValue(info.Node)),
		tag.Insert(outcomeTagKey, sanitizeTagValue(info.Outcome)),
	)
	if err != nil { // COVERAGE: tag values are sanitized, so this should not happen
		logging.GetContextLoggers(ctx).Errorf("Failed to create tags for call metrics: %s", err)
		return
	}
	measurements := []stats.Measurement{
		callsMeasure.M(1),
		callLatencyMeasure.M(float64(info.Duration) / float64(time.Millisecond)),
	}
	if info.Cost > 0 {
		measurements = append(measurements, callCostMeasure.M(info.Cost))
	}
	stats.Record(tagCtx, measurements...)
}

// RecordCapacities records the remaining capacity of every node.
func (m *Manager) RecordCapacities(nodes []registry.Node) {
	for _, n := range nodes {
		ctx, err := tag.New(m.openCensusCtx, tag.Insert(nodeTagKey, sanitizeTagValue(n.Address)))
		if err != nil { // COVERAGE: should not happen
			continue
		}
		stats.Record(ctx, nodeCapacity.M(n.Capacity))
	}
}

// WithRouteCount records a hit on an HTTP route and wraps the handler in a trace span.
func (m *Manager) WithRouteCount(ctx context.Context, route, httpMethod string, f func()) {
	tagCtx, err := tag.New(m.openCensusCtx,
		tag.Insert(routeTagKey, sanitizeTagValue(route)),
		tag.Insert(httpMethodTagKey, sanitizeTagValue(httpMethod)),
	)
	if err != nil { // COVERAGE: should not happen
		logging.GetContextLoggers(ctx).Errorf(`Failed to create tags for route "%s %s": %s`, httpMethod, route, err)
	} else {
		stats.Record(tagCtx, requestsMeasure.M(1))
	}
	_, span := trace.StartSpan(ctx, route)
	defer span.End()
	f()
}

// Pad empty keys to match tag keyset cardinality since empty strings are dropped
func sanitizeTagValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return "_"
	}
	return strings.Replace(v, "/", "_", -1)
}
