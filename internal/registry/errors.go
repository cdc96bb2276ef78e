package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when registering a node with a negative capacity.
	ErrInvalidCapacity = errors.New("capacity must not be negative")

	// ErrInvalidAmount is returned when trying to consume or credit a negative amount.
	ErrInvalidAmount = errors.New("amount must not be negative")

	// ErrNodeNotFound is returned for operations on an address that is not registered.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInsufficientCapacity is returned when a node does not have enough capacity left.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrNoEligibleNode is returned when no candidate node is registered with enough capacity.
	ErrNoEligibleNode = errors.New("no eligible node")

	// ErrInvalidAddress is returned for an empty node address.
	ErrInvalidAddress = errors.New("node address must not be empty")

	// ErrInvalidMethod is returned for an empty method name.
	ErrInvalidMethod = errors.New("method name must not be empty")
)

func errNodeNotFound(address string) error {
	return fmt.Errorf("%w: %q", ErrNodeNotFound, address)
}

func errInsufficientCapacity(address string, remaining, requested int64) error {
	return fmt.Errorf("%w: node %q has %d, requested %d", ErrInsufficientCapacity, address, remaining, requested)
}
