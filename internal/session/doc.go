// Package session assembles a running guildsync instance from a
// ServerConfig: the metric store, cache, counters, persistence, dispatcher,
// shard runner, gateway source and status server.
//
// A Session is built by Open, driven by Run and torn down by Close, which
// releases resources in reverse order of acquisition.
package session
