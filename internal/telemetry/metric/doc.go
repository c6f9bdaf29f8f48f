// Package metric provides shard-labeled Prometheus metrics for guildsync.
//
// Metrics are declared up front in a Registry (name, help text, ordered
// label names, kind). Building a Store freezes the registry and creates one
// Prometheus vector per definition in a private prometheus.Registry.
//
// Every update is validated against its definition:
//
//   - the label tuple must name exactly the declared labels, in order
//   - counters only move forward
//   - each metric accepts a bounded number of distinct label tuples
//
// Rejected updates return a DomainError and leave every series untouched.
//
// Label values must come from bounded sets: shard ids, fixed enums such as
// event wire names or error reasons, or a small capped set. Guild and user
// identifiers are never label values.
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric
