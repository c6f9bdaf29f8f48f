// Package ingest routes gateway envelopes to the handlers that keep the
// derived guild state up to date.
//
// Each shard is served by one Runner worker, so envelopes of a shard are
// dispatched sequentially in arrival order while shards run in parallel.
// The Dispatcher holds an immutable table of handler registrations per
// event type. Handlers that need a fully synchronized shard declare
// RequireReady; until the shard reports ready their envelopes are parked
// in a bounded per-shard backlog and replayed in order afterwards.
//
// A failing or panicking handler is counted, logged and isolated: it never
// stops the remaining handlers of the envelope or any other shard.
package ingest
