// Package rolestore persists guild role tables.
//
// The in-memory guild cache is authoritative for reads; this store is the
// eventually consistent copy written behind it and read once at startup to
// warm the cache.
//
// Keys have the form role/<guild_id>/<role_id> and values are the JSON
// encoding of domain.Role.
package rolestore
