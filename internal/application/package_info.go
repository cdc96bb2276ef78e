// Package application contains the command-line and HTTP server startup logic for the rpc-relay
// executable.
package application
