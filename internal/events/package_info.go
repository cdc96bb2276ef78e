// Package events publishes administrative registry changes as a Server-Sent Events stream, so that
// operators and other tools can follow node registrations and method authorizations as they happen.
package events
