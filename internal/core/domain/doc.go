// Package domain defines the core domain models for guildsync.
//
// Domain models are plain value objects without IO dependencies:
//
//   - Role, Member: the guild sub-state mirrored in memory
//   - EventType, Envelope and the typed payloads delivered by the gateway
//   - Errors: structured DomainError codes shared by every layer
//
// Every payload validates its own required fields so the dispatcher can
// drop malformed envelopes before any handler observes them.
package domain
