// Package store contains the durable registry stores. Each one implements registry.Persister, keeping
// a copy of the registered nodes and method authorizations in Redis, Consul, or DynamoDB so that they
// survive a restart.
package store
