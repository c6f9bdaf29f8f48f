// Package main provides the entry point for guildsync-server.
//
// guildsync-server consumes guild events from a chat gateway (or an NDJSON
// replay file), mirrors the role and membership state in memory, persists
// roles to Badger and exports approximate counters as Prometheus metrics.
package main
