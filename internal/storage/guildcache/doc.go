// Package guildcache holds the derived per-guild state mirrored from the
// gateway: each guild's role table and the bot's own membership record.
//
// Guild entries live in a sharded concurrent map, so the first writes for
// different guilds arriving on different gateway shards never race on the
// map structure. Each guild carries its own RWMutex; because a guild's
// events always arrive on one gateway shard there is a single writer per
// guild, and the lock only protects readers from observing a table while it
// is being modified.
//
// Lookups report absence with ok == false. Callers treat absence as "not yet
// synchronized", never as an error.
package guildcache
