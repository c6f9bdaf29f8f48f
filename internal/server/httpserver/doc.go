// Package httpserver serves the guildsync status surface over net/http:
//
//   - /metrics: prometheus exposition of the labeled metric store
//   - /health: liveness
//   - /ready: 200 once every shard is ready, 503 while hydrating
//   - /debug/counters: approximate counters, cache and persister stats
//
// Every route except /health is rate limited per client IP with
// golang.org/x/time/rate. A listener that fails to bind is reported to the
// caller and does not stop event ingestion.
package httpserver
