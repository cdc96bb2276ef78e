package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

// State is a complete copy of the registry and authorization data, as kept by a Persister.
type State struct {
	Nodes   []Node
	Methods map[string][]string
}

// Persister is implemented by durable stores that keep a copy of the registry state.
type Persister interface {
	Load(ctx context.Context) (State, error)
	PutNode(ctx context.Context, node Node) error
	DeleteNode(ctx context.Context, address string) error
	PutMethod(ctx context.Context, method string, addresses []string) error
}

// ChangeListener is notified after each administrative change has been applied.
type ChangeListener interface {
	NodeRegistered(node Node)
	NodeDeregistered(address string)
	MethodAllowed(method string, added, all []string)
}

type nullPersister struct{}

func (nullPersister) Load(context.Context) (State, error)               { return State{}, nil }
func (nullPersister) PutNode(context.Context, Node) error               { return nil }
func (nullPersister) DeleteNode(context.Context, string) error          { return nil }
func (nullPersister) PutMethod(context.Context, string, []string) error { return nil }

func errPersisting(what string, err error) error {
	return fmt.Errorf("failed to persist %s: %w", what, err)
}

// Manager applies administrative operations to a Registry and Authorization one at a time. Each
// change is validated, then written to the Persister, and only then applied in memory, so a storage
// failure leaves the in-memory state unchanged.
type Manager struct {
	registry      *Registry
	authorization *Authorization
	persister     Persister
	listeners     []ChangeListener
	loggers       ldlog.Loggers
	adminLock     sync.Mutex
	closeCh       chan struct{}
	doneCh        chan struct{}
	closeOnce     sync.Once
	startOnce     sync.Once
}

// NewManager creates a Manager. If persister is nil, nothing is persisted.
func NewManager(
	registry *Registry,
	authorization *Authorization,
	persister Persister,
	loggers ldlog.Loggers,
) *Manager {
	if persister == nil {
		persister = nullPersister{}
	}
	return &Manager{
		registry:      registry,
		authorization: authorization,
		persister:     persister,
		loggers:       loggers,
		closeCh:       make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Registry returns the managed Registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Authorization returns the managed Authorization.
func (m *Manager) Authorization() *Authorization {
	return m.authorization
}

// AddListener adds a ChangeListener. It should be called before any changes are made.
func (m *Manager) AddListener(l ChangeListener) {
	m.adminLock.Lock()
	m.listeners = append(m.listeners, l)
	m.adminLock.Unlock()
}

// Restore loads the persisted state and applies it in memory. Listeners are not notified.
func (m *Manager) Restore(ctx context.Context) error {
	m.adminLock.Lock()
	defer m.adminLock.Unlock()

	state, err := m.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted registry state: %w", err)
	}
	for _, node := range state.Nodes {
		if err := m.registry.Put(node); err != nil {
			m.loggers.Warnf("Ignoring invalid persisted node %q: %s", node.Address, err)
		}
	}
	for method, addresses := range state.Methods {
		if _, err := m.authorization.AllowNodeForMethod(method, addresses); err != nil {
			m.loggers.Warnf("Ignoring invalid persisted authorization for method %q: %s", method, err)
		}
	}
	if len(state.Nodes) > 0 || len(state.Methods) > 0 {
		m.loggers.Infof("Restored %d node(s) and %d method authorization(s) from storage",
			len(state.Nodes), len(state.Methods))
	}
	return nil
}

// RegisterNode registers a node or replaces an existing node's capacity.
func (m *Manager) RegisterNode(ctx context.Context, spec NodeSpec) (Node, error) {
	m.adminLock.Lock()
	defer m.adminLock.Unlock()

	node, err := m.registry.Preview(spec)
	if err != nil {
		return Node{}, err
	}
	if err := m.persister.PutNode(ctx, node); err != nil {
		return Node{}, errPersisting("node "+node.Address, err)
	}
	if err := m.registry.Put(node); err != nil {
		return Node{}, err // COVERAGE: Preview already validated the node
	}
	m.loggers.Infof("Registered node %q with capacity %d", node.Address, node.Capacity)
	for _, l := range m.listeners {
		l.NodeRegistered(node)
	}
	return node, nil
}

// DeregisterNode removes a node. Removing an unknown address is a no-op that returns (false, nil).
func (m *Manager) DeregisterNode(ctx context.Context, address string) (bool, error) {
	m.adminLock.Lock()
	defer m.adminLock.Unlock()

	if !m.registry.IsRegistered(address) {
		return false, nil
	}
	if err := m.persister.DeleteNode(ctx, address); err != nil {
		return false, errPersisting("removal of node "+address, err)
	}
	m.registry.DeregisterNode(address)
	m.loggers.Infof("Deregistered node %q", address)
	for _, l := range m.listeners {
		l.NodeDeregistered(address)
	}
	return true, nil
}

// AllowNodeForMethod adds nodes to the set allowed for a method, returning the ones that were newly
// added.
func (m *Manager) AllowNodeForMethod(ctx context.Context, method string, addresses []string) ([]string, error) {
	m.adminLock.Lock()
	defer m.adminLock.Unlock()

	all, err := m.authorization.PreviewAllow(method, addresses)
	if err != nil {
		return nil, err
	}
	if len(all) == len(m.authorization.AuthorizedNodes(method)) {
		return nil, nil
	}
	if err := m.persister.PutMethod(ctx, method, all); err != nil {
		return nil, errPersisting("authorization for method "+method, err)
	}
	added, err := m.authorization.AllowNodeForMethod(method, addresses)
	if err != nil {
		return nil, err // COVERAGE: PreviewAllow already validated the input
	}
	m.loggers.Infof("Allowed node(s) %v for method %q", added, method)
	for _, l := range m.listeners {
		l.MethodAllowed(method, added, all)
	}
	return added, nil
}

// SnapshotCapacities writes the current capacity of every node to the Persister.
func (m *Manager) SnapshotCapacities(ctx context.Context) error {
	m.adminLock.Lock()
	defer m.adminLock.Unlock()

	for _, node := range m.registry.Nodes() {
		if err := m.persister.PutNode(ctx, node); err != nil {
			return errPersisting("capacity of node "+node.Address, err)
		}
	}
	return nil
}

// StartSnapshots starts a goroutine that calls SnapshotCapacities at the given interval until the
// Manager is closed.
func (m *Manager) StartSnapshots(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.startOnce.Do(func() {
		go func() {
			defer close(m.doneCh)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-m.closeCh:
					return
				case <-ticker.C:
					if err := m.SnapshotCapacities(context.Background()); err != nil {
						m.loggers.Errorf("Capacity snapshot failed: %s", err)
					}
				}
			}
		}()
	})
}

// Close stops the snapshot goroutine, if any, and takes a final capacity snapshot.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.closeCh)
		started := true
		m.startOnce.Do(func() { started = false })
		if started {
			<-m.doneCh
		}
		err = m.SnapshotCapacities(context.Background())
	})
	return err
}
