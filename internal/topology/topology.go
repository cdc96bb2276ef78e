package topology

import (
	"context"
	"sort"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/registry"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"gopkg.in/gcfg.v1"
)

// Topology is a set of nodes and method authorizations, in the form of [Node "address"] and
// [Method "name"] configuration sections.
type Topology struct {
	Node   map[string]*config.NodeConfig
	Method map[string]*config.MethodConfig
}

// Target is the registry state that a Topology is applied to. It is implemented by registry.Manager.
type Target interface {
	Registry() *registry.Registry
	RegisterNode(ctx context.Context, spec registry.NodeSpec) (registry.Node, error)
	DeregisterNode(ctx context.Context, address string) (bool, error)
	AllowNodeForMethod(ctx context.Context, method string, addresses []string) ([]string, error)
}

// CostSetter receives per-method cost changes. It is implemented by selector.CostTable.
type CostSetter interface {
	SetCost(method string, cost int64)
}

// FromConfig returns the topology defined in the main configuration.
func FromConfig(c config.Config) Topology {
	return Topology{Node: c.Node, Method: c.Method}
}

// ReadFile parses and validates a topology file.
func ReadFile(path string, loggers ldlog.Loggers) (Topology, error) {
	var t Topology
	if err := gcfg.ReadFileInto(&t, path); err != nil {
		return Topology{}, errCannotReadTopologyFile(path, config.FilterGcfgError(err))
	}
	if err := config.ValidateTopology(t.Node, t.Method, loggers); err != nil {
		return Topology{}, errCannotReadTopologyFile(path, err)
	}
	return t, nil
}

// Costs returns the cost overrides defined by the topology.
func (t Topology) Costs() map[string]int64 {
	ret := make(map[string]int64)
	for method, mc := range t.Method {
		if mc != nil && mc.Cost.IsDefined() {
			ret[method] = int64(mc.Cost.GetOrElse(0))
		}
	}
	return ret
}

// Apply brings the target in line with next, given that prev was the last topology applied. Only the
// differences are applied, so a node whose entry did not change keeps whatever capacity it has left.
//
// If initial is true, nodes that are already registered (because they were restored from storage) are
// left alone. Authorizations are only ever added; a node that disappears from a method's list is
// logged but stays authorized.
//
// Apply keeps going after a failure and returns the first error.
func Apply(
	ctx context.Context,
	target Target,
	costs CostSetter,
	prev, next Topology,
	initial bool,
	loggers ldlog.Loggers,
) error {
	var firstErr error
	check := func(err error) {
		if err != nil {
			loggers.Errorf(logMsgChangeFailed, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for _, address := range sortedKeys(next.Node) {
		nc := next.Node[address]
		if old, ok := prev.Node[address]; ok && sameNode(old, nc) {
			continue
		}
		if initial && target.Registry().IsRegistered(address) {
			loggers.Infof(logMsgKeptStored, address)
			continue
		}
		spec := registry.NodeSpec{Address: address, Capacity: nc.Capacity}
		if nc.Endpoint.IsDefined() {
			spec.Endpoint = nc.Endpoint.String()
		}
		if _, err := target.RegisterNode(ctx, spec); err != nil {
			check(err)
			continue
		}
		loggers.Infof(logMsgRegistered, address, nc.Capacity)
	}
	for _, address := range sortedKeys(prev.Node) {
		if _, ok := next.Node[address]; ok {
			continue
		}
		removed, err := target.DeregisterNode(ctx, address)
		check(err)
		if removed {
			loggers.Infof(logMsgDeregistered, address)
		}
	}

	for _, method := range sortedKeys(next.Method) {
		mc := next.Method[method]
		added, err := target.AllowNodeForMethod(ctx, method, mc.Node)
		check(err)
		if len(added) != 0 {
			loggers.Infof(logMsgAllowed, added, method)
		}
		if old, ok := prev.Method[method]; ok {
			warnRevoked(method, old.Node, mc.Node, loggers)
		}
	}
	for _, method := range sortedKeys(prev.Method) {
		if _, ok := next.Method[method]; !ok {
			warnRevoked(method, prev.Method[method].Node, nil, loggers)
		}
	}

	if costs != nil {
		prevCosts, nextCosts := prev.Costs(), next.Costs()
		for _, method := range sortedKeys(nextCosts) {
			if c, ok := prevCosts[method]; !ok || c != nextCosts[method] {
				costs.SetCost(method, nextCosts[method])
				loggers.Infof(logMsgCostChanged, method, nextCosts[method])
			}
		}
		for method := range prevCosts {
			if _, ok := nextCosts[method]; !ok {
				costs.SetCost(method, 0)
			}
		}
	}

	return firstErr
}

func sameNode(a, b *config.NodeConfig) bool {
	return a.Capacity == b.Capacity && a.Endpoint.String() == b.Endpoint.String()
}

func warnRevoked(method string, before, after []string, loggers ldlog.Loggers) {
	kept := make(map[string]struct{}, len(after))
	for _, a := range after {
		kept[a] = struct{}{}
	}
	for _, b := range before {
		if _, ok := kept[b]; !ok {
			loggers.Warnf(logMsgCannotRevoke, b, method)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
