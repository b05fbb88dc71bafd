// Package config provides the configuration of the ruthless crawler: storage
// backend, fetch limits, worker count, shared dedup cache, metrics endpoint
// and report preferences. Values come from defaults, an optional YAML file
// and command line flags, in increasing order of precedence.
package config
