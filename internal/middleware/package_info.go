// Package middleware contains helpers for adding standard behavior like authentication, CORS, and
// metrics to the relay's HTTP endpoints.
package middleware
