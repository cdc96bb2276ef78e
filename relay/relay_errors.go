package relay

import (
	"errors"
	"fmt"
)

var (
	errCapacityRequired = errors.New("capacity is required")
	errEndpointInvalid  = errors.New("endpoint must be an absolute URL")
	errNodesRequired    = errors.New("at least one node address is required")
)

func errNewMetricsManagerFailed(err error) error {
	return fmt.Errorf("unable to create metrics manager: %w", err)
}

func errStoreFailed(err error) error {
	return fmt.Errorf("unable to configure registry store: %w", err)
}

func errRestoreFailed(err error) error {
	return fmt.Errorf("unable to restore registry state: %w", err)
}

func errInitialTopologyFailed(err error) error {
	return fmt.Errorf("unable to apply configured nodes and methods: %w", err)
}

func errCacheFailed(err error) error {
	return fmt.Errorf("unable to configure result cache: %w", err)
}

func errHTTPConfigFailed(err error) error {
	return fmt.Errorf("invalid proxy configuration: %w", err)
}
