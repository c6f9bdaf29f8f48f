// Package handler provides the HTTP handlers of the guildsync status API.
//
//   - health.go: liveness and readiness
//   - debug.go: counters, cache, persistence and stats snapshot
//
// JSON responses share the Response envelope. /metrics is served by the
// prometheus handler and is not part of this package.
package handler
