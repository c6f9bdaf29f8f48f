package ingest

import "github.com/yndnr/guildsync/internal/core/domain"

// DefaultRegistrations returns the handler table of a guildsync session.
//
// Every handler runs from the first event except the self-member update,
// which waits for the shard to be ready. Updates deferred before a guild's
// backfill are discarded by the backfill, so only updates that arrived
// after it are replayed on READY.
func DefaultRegistrations() []Registration {
	return []Registration{
		{Type: domain.EventMemberAdded, Name: "member_added", Handler: HandlerFunc(memberAdded), Readiness: Always},
		{Type: domain.EventMemberRemoved, Name: "member_removed", Handler: HandlerFunc(memberRemoved), Readiness: Always},
		{Type: domain.EventMemberUpdated, Name: "self_member", Handler: HandlerFunc(memberUpdated), Readiness: RequireReady},
		{Type: domain.EventRoleCreated, Name: "role_created", Handler: HandlerFunc(roleCreated), Readiness: Always},
		{Type: domain.EventRoleUpdated, Name: "role_updated", Handler: HandlerFunc(roleUpdated), Readiness: Always},
		{Type: domain.EventRoleDeleted, Name: "role_deleted", Handler: HandlerFunc(roleDeleted), Readiness: Always},
		{Type: domain.EventGuildAvailable, Name: "guild_available", Handler: HandlerFunc(guildAvailable), Readiness: Always},
		{Type: domain.EventGuildRemoved, Name: "guild_removed", Handler: HandlerFunc(guildRemoved), Readiness: Always},
		{Type: domain.EventShardReady, Name: "shard_ready", Handler: HandlerFunc(shardReady), Readiness: Always},
		{Type: domain.EventShardDisconnected, Name: "shard_disconnected", Handler: HandlerFunc(shardDisconnected), Readiness: Always},
	}
}
