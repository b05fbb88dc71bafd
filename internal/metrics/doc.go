// Package metrics exposes crawler counters to Prometheus.
//
// A nil *Crawler is valid and records nothing, so components can take an
// optional collector without guarding every call.
package metrics
