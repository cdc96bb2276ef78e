// Package sharedtest provides helper code and test data that may be used by tests in all relay
// components.
//
// Non-test code should never import this package.
package sharedtest
