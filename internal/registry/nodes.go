package registry

import (
	"sort"
	"sync"
	"time"
)

// Node is a snapshot of a registered backend node.
type Node struct {
	Address string
	// Capacity is the remaining work budget. It is never negative.
	Capacity int64
	// Endpoint is the node's JSON-RPC URL, if it is reachable over HTTP.
	Endpoint     string
	RegisteredAt time.Time
	// Sequence orders nodes by registration; lower values were registered first. Re-registering an
	// address that is still registered keeps its original Sequence.
	Sequence uint64
}

// NodeSpec describes a registration request.
type NodeSpec struct {
	Address  string
	Capacity int64
	// Endpoint is optional. If it is empty when an already-registered node is registered again, the
	// previous endpoint is kept.
	Endpoint string
}

// Reservation records capacity that was taken from a node for one call.
type Reservation struct {
	Node   Node
	Amount int64

	generation uint64
}

type nodeState struct {
	node       Node
	generation uint64
}

// Registry is the set of registered nodes and their capacity.
//
// Every operation that reads and then changes a node's capacity happens under a single lock, so
// concurrent callers can never over-commit a node.
type Registry struct {
	nodes          map[string]*nodeState
	nextSequence   uint64
	nextGeneration uint64
	now            func() time.Time
	lock           sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:        make(map[string]*nodeState),
		nextSequence: 1,
		now:          time.Now,
	}
}

// RegisterNode adds a node or overwrites an existing node's capacity. The new capacity replaces the
// old one; the two are never summed.
func (r *Registry) RegisterNode(address string, capacity int64) error {
	_, err := r.Register(NodeSpec{Address: address, Capacity: capacity})
	return err
}

// Register is the same as RegisterNode, but also allows setting the node's endpoint. It returns the
// resulting node.
func (r *Registry) Register(spec NodeSpec) (Node, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	node, err := r.preview(spec)
	if err != nil {
		return Node{}, err
	}
	r.put(node)
	return node, nil
}

// Preview validates a registration and returns the node that Register would produce, without changing
// anything.
func (r *Registry) Preview(spec NodeSpec) (Node, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.preview(spec)
}

// Put stores a node exactly as given, including its Sequence and RegisteredAt. It is used to apply a
// previewed registration and to restore persisted state.
func (r *Registry) Put(node Node) error {
	if node.Address == "" {
		return ErrInvalidAddress
	}
	if node.Capacity < 0 {
		return ErrInvalidCapacity
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.put(node)
	return nil
}

// DeregisterNode removes a node. It returns false if the address was not registered; that is not an
// error.
func (r *Registry) DeregisterNode(address string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.nodes[address]; !ok {
		return false
	}
	delete(r.nodes, address)
	return true
}

// GetCapacity returns the node's remaining capacity, or ErrNodeNotFound.
func (r *Registry) GetCapacity(address string) (int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if st, ok := r.nodes[address]; ok {
		return st.node.Capacity, nil
	}
	return 0, errNodeNotFound(address)
}

// Get returns a snapshot of a node.
func (r *Registry) Get(address string) (Node, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if st, ok := r.nodes[address]; ok {
		return st.node, true
	}
	return Node{}, false
}

// IsRegistered returns true if the address is registered.
func (r *Registry) IsRegistered(address string) bool {
	_, ok := r.Get(address)
	return ok
}

// ConsumeCapacity decrements a node's capacity by amount. If the node does not have that much
// capacity left, it returns ErrInsufficientCapacity and nothing changes.
func (r *Registry) ConsumeCapacity(address string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	st, ok := r.nodes[address]
	if !ok {
		return errNodeNotFound(address)
	}
	if st.node.Capacity < amount {
		return errInsufficientCapacity(address, st.node.Capacity, amount)
	}
	st.node.Capacity -= amount
	return nil
}

// Nodes returns snapshots of all registered nodes in registration order.
func (r *Registry) Nodes() []Node {
	r.lock.RLock()
	ret := make([]Node, 0, len(r.nodes))
	for _, st := range r.nodes {
		ret = append(ret, st.node)
	}
	r.lock.RUnlock()
	sort.Slice(ret, func(i, j int) bool { return ret[i].Sequence < ret[j].Sequence })
	return ret
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.nodes)
}

// Reserve chooses one of the candidate addresses and takes cost from its capacity, all under the
// registry lock. Candidates that are not registered, or that have less than cost remaining, are
// skipped. The choose function is given the remaining candidates (in the order they were passed) and
// returns the index of the one to use. If nothing is eligible, Reserve returns ErrNoEligibleNode.
func (r *Registry) Reserve(candidates []string, cost int64, choose func(eligible []Node) int) (Reservation, error) {
	if cost < 0 {
		return Reservation{}, ErrInvalidAmount
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	eligible := make([]Node, 0, len(candidates))
	for _, address := range candidates {
		if st, ok := r.nodes[address]; ok && st.node.Capacity >= cost {
			eligible = append(eligible, st.node)
		}
	}
	if len(eligible) == 0 {
		return Reservation{}, ErrNoEligibleNode
	}
	chosen := eligible[0]
	if i := choose(eligible); i >= 0 && i < len(eligible) {
		chosen = eligible[i]
	}
	st := r.nodes[chosen.Address]
	st.node.Capacity -= cost
	return Reservation{Node: st.node, Amount: cost, generation: st.generation}, nil
}

// ReleaseCapacity credits amount back to the node a reservation was taken from. Nothing is credited if the
// node has since been deregistered or registered again, since its capacity was then set explicitly.
// It returns true if the capacity was credited.
func (r *Registry) ReleaseCapacity(res Reservation, amount int64) bool {
	if amount <= 0 {
		return false
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	st, ok := r.nodes[res.Node.Address]
	if !ok || st.generation != res.generation {
		return false
	}
	st.node.Capacity += amount
	return true
}

// ConsumeMore takes additional capacity for a reservation whose actual cost turned out to be higher
// than what was reserved. Like ConsumeCapacity, it is all-or-nothing.
func (r *Registry) ConsumeMore(res Reservation, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	st, ok := r.nodes[res.Node.Address]
	if !ok || st.generation != res.generation {
		return errNodeNotFound(res.Node.Address)
	}
	if st.node.Capacity < amount {
		return errInsufficientCapacity(res.Node.Address, st.node.Capacity, amount)
	}
	st.node.Capacity -= amount
	return nil
}

func (r *Registry) preview(spec NodeSpec) (Node, error) {
	if spec.Address == "" {
		return Node{}, ErrInvalidAddress
	}
	if spec.Capacity < 0 {
		return Node{}, ErrInvalidCapacity
	}
	node := Node{
		Address:  spec.Address,
		Capacity: spec.Capacity,
		Endpoint: spec.Endpoint,
	}
	if st, ok := r.nodes[spec.Address]; ok {
		node.Sequence = st.node.Sequence
		node.RegisteredAt = st.node.RegisteredAt
		if node.Endpoint == "" {
			node.Endpoint = st.node.Endpoint
		}
	} else {
		node.Sequence = r.nextSequence
		node.RegisteredAt = r.now()
	}
	return node, nil
}

func (r *Registry) put(node Node) {
	if node.Sequence == 0 {
		node.Sequence = r.nextSequence
	}
	if node.RegisteredAt.IsZero() {
		node.RegisteredAt = r.now()
	}
	r.nextGeneration++
	r.nodes[node.Address] = &nodeState{node: node, generation: r.nextGeneration}
	if node.Sequence >= r.nextSequence {
		r.nextSequence = node.Sequence + 1
	}
}
