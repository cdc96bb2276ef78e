package selector

import (
	"github.com/rpcrelay/rpc-relay/internal/registry"
)

// Cancel credits a reservation's whole amount back to its node, for a call that did not deliver any
// work. It returns false if the node was deregistered or registered again in the meantime.
func (s *Selector) Cancel(res registry.Reservation) bool {
	return s.registry.ReleaseCapacity(res, res.Amount)
}

// Settle reconciles a reservation with the actual cost of a completed call. If the call cost less than
// was reserved, the difference is credited back. If it cost more, the extra is taken from the node if
// it is available; otherwise registry.ErrInsufficientCapacity is returned and the node keeps only the
// original charge.
func (s *Selector) Settle(res registry.Reservation, actual int64) error {
	switch {
	case actual < 0 || actual == res.Amount:
		return nil
	case actual < res.Amount:
		s.registry.ReleaseCapacity(res, res.Amount-actual)
		return nil
	default:
		return s.registry.ConsumeMore(res, actual-res.Amount)
	}
}
