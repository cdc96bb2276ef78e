// Package metrics records OpenCensus statistics for relayed calls and HTTP routes, and manages the
// optional Datadog, Stackdriver, and Prometheus exporters.
package metrics
