// Package registry holds the relay's shared mutable state: the set of registered backend nodes with
// their remaining capacity, and the authorization map from RPC method names to the nodes that are
// allowed to serve them.
//
// Registry and Authorization are safe for concurrent use. Administrative changes that also need to be
// persisted or announced go through Manager, which applies them one at a time.
package registry
