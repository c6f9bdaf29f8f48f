// Package cmap provides a concurrent map keyed by string-like identifiers.
//
// The map is split into a power-of-two number of shards, each guarded by
// its own RWMutex. Keys are assigned to shards with MurmurHash3 so that
// snowflake-style identifiers (which share long common prefixes) still
// spread evenly.
//
// Usage:
//
//	m := cmap.New[domain.GuildID, *guildState]()
//	st, _ := m.GetOrCreate(id, newGuildState)
//	m.Range(func(id domain.GuildID, st *guildState) bool { ...; return true })
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has, Range) use
// RLock, write operations (Set, Delete, GetOrCreate, Pop) use Lock.
// Range holds one shard lock at a time, so the view is not a consistent
// snapshot across shards.
package cmap
