package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/backend"
	"github.com/rpcrelay/rpc-relay/internal/cache"
	"github.com/rpcrelay/rpc-relay/internal/dispatch"
	"github.com/rpcrelay/rpc-relay/internal/events"
	"github.com/rpcrelay/rpc-relay/internal/httpconfig"
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/internal/metrics"
	"github.com/rpcrelay/rpc-relay/internal/registry"
	"github.com/rpcrelay/rpc-relay/internal/selector"
	"github.com/rpcrelay/rpc-relay/internal/store"
	"github.com/rpcrelay/rpc-relay/internal/topology"
	"github.com/rpcrelay/rpc-relay/internal/util"
	"github.com/rpcrelay/rpc-relay/relay/version"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

const capacityMetricsInterval = 10 * time.Second

// Relay represents the overall relay application: the node registry, the dispatcher that routes
// calls to nodes, and the HTTP endpoints in front of them.
//
// It can also be referenced externally in order to embed relay functionality into a customized
// application.
//
// This type deliberately exports no methods other than ServeHTTP and Close. Everything else is an
// implementation detail which is subject to change.
type Relay struct {
	http.Handler
	manager         *registry.Manager
	selector        *selector.Selector
	costs           *selector.CostTable
	dispatcher      *dispatch.Dispatcher
	metricsManager  *metrics.Manager
	feed            *events.Feed
	cache           cache.Cache
	persister       store.Persister
	storeInfo       store.Info
	topologyWatcher *topology.Watcher
	stopMetricsCh   chan struct{}
	version         string
	closed          bool
	lock            sync.Mutex
	config          config.Config
	loggers         ldlog.Loggers
}

// Using a struct type for this instead of adding parameters to newRelayInternal helps to minimize
// changes to test code whenever we make more things configurable.
type relayInternalOptions struct {
	loggers  ldlog.Loggers
	executor dispatch.Executor
}

// NewRelay creates a new Relay given a configuration.
//
// If any metrics exporters are enabled in c.MetricsConfig, it also registers those in OpenCensus. If a
// database is configured, the registry state stored there is restored before the configured nodes
// are applied.
func NewRelay(c config.Config, loggers ldlog.Loggers) (*Relay, error) {
	return newRelayInternal(c, relayInternalOptions{loggers: loggers})
}

func newRelayInternal(c config.Config, options relayInternalOptions) (*Relay, error) {
	var thingsToCleanUp util.CleanupTasks // keeps track of partially constructed things in case we exit early
	defer thingsToCleanUp.Run()

	loggers := options.loggers

	if err := config.ValidateConfig(&c, loggers); err != nil { // in case a not-yet-validated Config was passed to NewRelay
		return nil, err
	}

	if c.Main.LogLevel.IsDefined() {
		loggers.SetMinLevel(c.Main.LogLevel.GetOrElse(ldlog.Info))
	}

	metricsManager, err := metrics.NewManager(c.MetricsConfig, logging.ForComponent(loggers, "Metrics"))
	if err != nil {
		return nil, errNewMetricsManagerFailed(err)
	}
	thingsToCleanUp.AddFunc(metricsManager.Close)

	ctx := context.Background()

	persister, storeInfo, err := store.ConfigurePersister(ctx, c, logging.ForComponent(loggers, "Store"))
	if err != nil {
		return nil, errStoreFailed(err)
	}
	if persister != nil {
		thingsToCleanUp.AddCloser(persister)
	}

	registryLoggers := logging.ForComponent(loggers, "Registry")
	manager := registry.NewManager(registry.NewRegistry(), registry.NewAuthorization(), persister, registryLoggers)
	if err := manager.Restore(ctx); err != nil {
		return nil, errRestoreFailed(err)
	}

	costs := selector.NewCostTable(int64(c.Main.CallCost.GetOrElse(config.DefaultCallCost)), nil)
	if err := topology.Apply(ctx, manager, costs, topology.Topology{}, topology.FromConfig(c), true,
		registryLoggers); err != nil {
		// Apply has already logged each failure; without ExitOnError we keep whatever did get applied.
		if c.Main.ExitOnError {
			return nil, errInitialTopologyFailed(err)
		}
	}

	r := &Relay{
		manager:        manager,
		costs:          costs,
		metricsManager: metricsManager,
		persister:      persister,
		storeInfo:      storeInfo,
		stopMetricsCh:  make(chan struct{}),
		version:        version.Version,
		config:         c,
		loggers:        loggers,
	}

	if c.Main.TopologyFile != "" {
		w, err := topology.NewWatcher(c.Main.TopologyFile, manager, costs, 0, loggers) // the watcher sets its own log prefix
		if err != nil {
			return nil, err
		}
		r.topologyWatcher = w
		thingsToCleanUp.AddFunc(w.Close)
	}

	r.feed = events.NewFeed(manager.Registry(), manager.Authorization(), 0, logging.ForComponent(loggers, "Events"))
	thingsToCleanUp.AddFunc(r.feed.Close)
	manager.AddListener(r.feed)

	resultCache, err := cache.ConfigureCache(c, logging.ForComponent(loggers, "Cache"))
	if err != nil {
		return nil, errCacheFailed(err)
	}
	var dispatchCache dispatch.ResultCache
	if resultCache != nil {
		r.cache = resultCache
		dispatchCache = resultCache
		thingsToCleanUp.AddCloser(resultCache)
	}

	executor := options.executor
	if executor == nil {
		httpConfig, err := httpconfig.NewHTTPConfig(c.Proxy, loggers)
		if err != nil {
			return nil, errHTTPConfigFailed(err)
		}
		executor = backend.NewExecutor(httpConfig, logging.ForComponent(loggers, "Backend"))
	}

	r.selector = selector.NewSelector(manager.Registry(), manager.Authorization(), costs.Cost)
	r.dispatcher = dispatch.NewDispatcher(
		r.selector,
		executor,
		dispatch.Options{
			CallTimeout:         c.Main.CallTimeout.GetOrElse(config.DefaultCallTimeout),
			MaxBatchSize:        c.Main.MaxBatchSize.GetOrElse(0),
			MaxBatchConcurrency: c.Main.MaxBatchConcurrency.GetOrElse(config.DefaultMaxBatchConcurrency),
			Cache:               dispatchCache,
			Observer:            metricsManager,
		},
		logging.ForComponent(loggers, "Dispatch"),
	)

	if persister != nil {
		manager.StartSnapshots(c.Main.SnapshotInterval.GetOrElse(config.DefaultSnapshotInterval))
	}
	thingsToCleanUp.AddCloser(manager)

	go r.recordCapacities()

	r.Handler = r.makeRouter()
	thingsToCleanUp.Clear() // we succeeded, don't close anything
	return r, nil
}

func (r *Relay) recordCapacities() {
	ticker := time.NewTicker(capacityMetricsInterval)
	defer ticker.Stop()
	for {
		r.metricsManager.RecordCapacities(r.manager.Registry().Nodes())
		select {
		case <-r.stopMetricsCh:
			return
		case <-ticker.C:
		}
	}
}

// Close shuts down components created by the relay.
//
// This includes stopping the topology file watcher, ending all event feed connections, taking a final
// capacity snapshot and closing database connections if any, and stopping OpenCensus exporters.
// Calls that are already executing are not interrupted.
func (r *Relay) Close() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}
	r.closed = true
	r.lock.Unlock()

	close(r.stopMetricsCh)

	if r.topologyWatcher != nil {
		r.topologyWatcher.Close()
	}
	r.feed.Close()

	if err := r.manager.Close(); err != nil {
		r.loggers.Warnf("Unexpected error when saving registry state: %s", err)
	}
	if r.persister != nil {
		if err := r.persister.Close(); err != nil {
			r.loggers.Warnf("Unexpected error when closing registry store: %s", err)
		}
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			r.loggers.Warnf("Unexpected error when closing result cache: %s", err)
		}
	}

	r.metricsManager.Close()
	return nil
}
