package events

import (
	"net/http"
	"sync"
	"time"

	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

const (
	registryChannel = "registry"

	// DefaultHeartbeatInterval is used if NewFeed is given a zero interval.
	DefaultHeartbeatInterval = 3 * time.Minute
)

// Feed is a registry.ChangeListener that broadcasts each change to all connected SSE clients. A newly
// connected client first receives a "snapshot" event with the current state.
type Feed struct {
	server    *eventsource.Server
	channels  []string
	loggers   ldlog.Loggers
	closeCh   chan struct{}
	closeOnce sync.Once
}

type registryRepository struct {
	registry      *registry.Registry
	authorization *registry.Authorization
}

var _ registry.ChangeListener = (*Feed)(nil)

// NewFeed creates a Feed and starts sending heartbeat comments at the given interval. A negative
// interval disables heartbeats.
func NewFeed(
	reg *registry.Registry,
	auth *registry.Authorization,
	heartbeatInterval time.Duration,
	loggers ldlog.Loggers,
) *Feed {
	s := eventsource.NewServer()
	s.Gzip = false
	s.AllowCORS = false
	s.ReplayAll = true
	s.Register(registryChannel, &registryRepository{registry: reg, authorization: auth})

	f := &Feed{
		server:   s,
		channels: []string{registryChannel},
		loggers:  loggers,
		closeCh:  make(chan struct{}),
	}
	if heartbeatInterval == 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	if heartbeatInterval > 0 {
		go f.runHeartbeats(heartbeatInterval)
	}
	return f
}

// Handler returns the HTTP handler for the event stream.
func (f *Feed) Handler() http.HandlerFunc {
	return f.server.Handler(registryChannel)
}

// NodeRegistered is called by registry.Manager.
func (f *Feed) NodeRegistered(node registry.Node) {
	f.server.Publish(f.channels, MakeNodeRegisteredEvent(node))
}

// NodeDeregistered is called by registry.Manager.
func (f *Feed) NodeDeregistered(address string) {
	f.server.Publish(f.channels, MakeNodeDeregisteredEvent(address))
}

// MethodAllowed is called by registry.Manager.
func (f *Feed) MethodAllowed(method string, added, all []string) {
	f.server.Publish(f.channels, MakeMethodAllowedEvent(method, added, all))
}

// Close disconnects all clients and stops the heartbeat.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closeCh)
		f.server.Close()
		f.loggers.Debug("Closed registry event feed")
	})
}

func (f *Feed) runHeartbeats(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.closeCh:
			return
		case <-ticker.C:
			f.server.PublishComment(f.channels, "")
		}
	}
}

func (r *registryRepository) Replay(channel, id string) chan eventsource.Event {
	out := make(chan eventsource.Event, 1)
	out <- MakeSnapshotEvent(r.registry.Nodes(), r.authorization.Snapshot(), r.authorization.Methods())
	close(out)
	return out
}
