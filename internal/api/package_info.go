// Package api defines the JSON representations used by the relay's status and administrative endpoints.
package api
