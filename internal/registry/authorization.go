package registry

import (
	"sort"
	"sync"
)

type addressSet struct {
	ordered []string
	members map[string]struct{}
}

func (s *addressSet) add(address string) bool {
	if _, ok := s.members[address]; ok {
		return false
	}
	s.members[address] = struct{}{}
	s.ordered = append(s.ordered, address)
	return true
}

// Authorization maps method names to the nodes that may serve them. A method with no entry is not
// authorized for any node. Entries only grow: allowing more nodes adds to the existing set.
//
// Method names are case-sensitive. Addresses do not need to be registered to be authorized; an
// unregistered address is simply never selected.
type Authorization struct {
	methods map[string]*addressSet
	lock    sync.RWMutex
}

// NewAuthorization creates an empty Authorization.
func NewAuthorization() *Authorization {
	return &Authorization{methods: make(map[string]*addressSet)}
}

// AllowNodeForMethod adds the given addresses to the set allowed for method, keeping the order in
// which addresses were first added. It returns the addresses that were not already allowed. If the
// method name or any address is empty, nothing changes.
func (a *Authorization) AllowNodeForMethod(method string, addresses []string) ([]string, error) {
	if err := validateAllow(method, addresses); err != nil {
		return nil, err
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	set := a.methods[method]
	if set == nil {
		set = &addressSet{members: make(map[string]struct{})}
		a.methods[method] = set
	}
	var added []string
	for _, address := range addresses {
		if set.add(address) {
			added = append(added, address)
		}
	}
	return added, nil
}

// PreviewAllow returns the full set of addresses that would be allowed for method after
// AllowNodeForMethod, without changing anything.
func (a *Authorization) PreviewAllow(method string, addresses []string) ([]string, error) {
	if err := validateAllow(method, addresses); err != nil {
		return nil, err
	}
	merged := &addressSet{members: make(map[string]struct{})}
	for _, address := range a.AuthorizedNodes(method) {
		merged.add(address)
	}
	for _, address := range addresses {
		merged.add(address)
	}
	return merged.ordered, nil
}

// IsAuthorized returns true if address is allowed to serve method.
func (a *Authorization) IsAuthorized(method, address string) bool {
	a.lock.RLock()
	defer a.lock.RUnlock()
	if set, ok := a.methods[method]; ok {
		_, ok = set.members[address]
		return ok
	}
	return false
}

// AuthorizedNodes returns a copy of the addresses allowed for method, in insertion order. The result
// is empty for an unknown method.
func (a *Authorization) AuthorizedNodes(method string) []string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	set, ok := a.methods[method]
	if !ok {
		return nil
	}
	ret := make([]string, len(set.ordered))
	copy(ret, set.ordered)
	return ret
}

// Methods returns the names of all methods that have an entry, sorted.
func (a *Authorization) Methods() []string {
	a.lock.RLock()
	ret := make([]string, 0, len(a.methods))
	for m := range a.methods {
		ret = append(ret, m)
	}
	a.lock.RUnlock()
	sort.Strings(ret)
	return ret
}

// Snapshot returns a copy of the whole authorization map.
func (a *Authorization) Snapshot() map[string][]string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	ret := make(map[string][]string, len(a.methods))
	for m, set := range a.methods {
		ret[m] = append([]string(nil), set.ordered...)
	}
	return ret
}

func validateAllow(method string, addresses []string) error {
	if method == "" {
		return ErrInvalidMethod
	}
	for _, address := range addresses {
		if address == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}
