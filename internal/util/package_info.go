// Package util contains small helpers shared by the relay's HTTP surfaces and components.
package util
