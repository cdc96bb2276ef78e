// Package selector decides which registered node serves each relayed call.
package selector

import (
	"github.com/rpcrelay/rpc-relay/internal/registry"
)

// DefaultCallCost is the capacity cost of one call when no other cost is configured.
const DefaultCallCost = 1

// CostFunc returns the estimated capacity cost of calling a method.
type CostFunc func(method string) int64

// FixedCost returns a CostFunc that charges defaultCost for every method, except for methods that have
// an entry in overrides.
func FixedCost(defaultCost int64, overrides map[string]int64) CostFunc {
	copied := make(map[string]int64, len(overrides))
	for m, c := range overrides {
		copied[m] = c
	}
	return func(method string) int64 {
		if c, ok := copied[method]; ok {
			return c
		}
		return defaultCost
	}
}

// Selector picks one node per call among the nodes that are authorized for the method, registered,
// and have enough capacity left for the call's cost. The node with the most remaining capacity wins;
// ties go to the node that was registered first.
type Selector struct {
	registry      *registry.Registry
	authorization *registry.Authorization
	cost          CostFunc
}

// NewSelector creates a Selector. If cost is nil, every call costs DefaultCallCost.
func NewSelector(reg *registry.Registry, auth *registry.Authorization, cost CostFunc) *Selector {
	if cost == nil {
		cost = FixedCost(DefaultCallCost, nil)
	}
	return &Selector{registry: reg, authorization: auth, cost: cost}
}

// Cost returns the estimated cost of one call to method.
func (s *Selector) Cost(method string) int64 {
	return s.cost(method)
}

// Reserve selects a node for method and takes the call's cost from its capacity. It returns
// registry.ErrNoEligibleNode if the method is not authorized for any registered node, or if every
// such node is short of capacity.
func (s *Selector) Reserve(method string) (registry.Reservation, error) {
	candidates := s.authorization.AuthorizedNodes(method)
	if len(candidates) == 0 {
		return registry.Reservation{}, registry.ErrNoEligibleNode
	}
	return s.registry.Reserve(candidates, s.cost(method), LargestCapacityFirst)
}

// HasEligibleNode returns true if Reserve could currently succeed for method: at least one registered
// node is authorized for it and has capacity for its cost. Nothing is reserved.
func (s *Selector) HasEligibleNode(method string) bool {
	cost := s.cost(method)
	for _, address := range s.authorization.AuthorizedNodes(method) {
		if node, ok := s.registry.Get(address); ok && node.Capacity >= cost {
			return true
		}
	}
	return false
}

// LargestCapacityFirst is the selection policy: it returns the index of the node with the largest
// remaining capacity, breaking ties by earliest registration.
func LargestCapacityFirst(eligible []registry.Node) int {
	best := -1
	for i, n := range eligible {
		if best < 0 {
			best = i
			continue
		}
		b := eligible[best]
		if n.Capacity > b.Capacity || (n.Capacity == b.Capacity && n.Sequence < b.Sequence) {
			best = i
		}
	}
	return best
}
