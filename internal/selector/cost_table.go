package selector

import "sync"

// CostTable is a set of per-method costs that can be changed while the relay is running, for instance
// when the topology file is reloaded. Its Cost method can be passed to NewSelector as a CostFunc.
type CostTable struct {
	defaultCost int64
	overrides   map[string]int64
	lock        sync.RWMutex
}

// NewCostTable creates a CostTable. If defaultCost is not positive, DefaultCallCost is used.
func NewCostTable(defaultCost int64, overrides map[string]int64) *CostTable {
	if defaultCost <= 0 {
		defaultCost = DefaultCallCost
	}
	t := &CostTable{defaultCost: defaultCost, overrides: make(map[string]int64, len(overrides))}
	for m, c := range overrides {
		t.overrides[m] = c
	}
	return t
}

// Cost returns the cost of one call to method.
func (t *CostTable) Cost(method string) int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	if c, ok := t.overrides[method]; ok {
		return c
	}
	return t.defaultCost
}

// SetCost sets the cost of method. A cost that is not positive removes the override.
func (t *CostTable) SetCost(method string, cost int64) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if cost <= 0 {
		delete(t.overrides, method)
		return
	}
	t.overrides[method] = cost
}
