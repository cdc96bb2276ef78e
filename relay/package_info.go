// Package relay contains the relay application component that combines all of the internal components
// and implements the HTTP endpoints.
//
// This package is not in internal/ so that the exported Relay type can be used by external code to
// embed relay functionality into a customized application.
package relay
