// Package version provides the current version of the relay.
package version

// Version is the package version. It is set at build time with -ldflags for release builds.
var Version = "1.0.0" //nolint:gochecknoglobals
