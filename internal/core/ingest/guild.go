package ingest

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/stats"
)

// guildAvailable applies the bulk backfill of a guild. A repeated backfill
// (after a reconnect) adjusts the counters by the change in member count
// only.
func guildAvailable(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.GuildAvailableData)

	st.Cache.ReplaceRoles(d.GuildID, d.Roles)
	if d.Self != nil && st.SelfID != "" && d.Self.UserID == st.SelfID {
		st.Cache.SetSelfMember(d.GuildID, d.Self)
	}

	prev, seen := st.Cache.MarkAvailable(d.GuildID, d.MemberCount)
	delta := d.MemberCount - prev
	if !seen {
		st.Counters.Adjust(counter.Guilds, 1)
	}
	st.Counters.Adjust(counter.Users, delta)
	if delta != 0 {
		st.Stats.Count(ctx, stats.GuildMembers, delta, stats.T(stats.TagGuildID, string(d.GuildID)))
	}

	persisted(ctx, st.Persister.DeleteGuild(d.GuildID))
	for _, r := range d.Roles {
		persisted(ctx, st.Persister.UpsertRole(d.GuildID, r))
	}

	return st.Metrics.Set(metric.CachedGuilds, nil, float64(st.Cache.Len()))
}

// guildRemoved drops every piece of state held for a guild.
func guildRemoved(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.GuildRemovedData)

	members, known := st.Cache.MemberCount(d.GuildID)
	if !known {
		return nil
	}
	if st.Cache.Available(d.GuildID) {
		st.Counters.Adjust(counter.Guilds, -1)
	}
	st.Cache.RemoveGuild(d.GuildID)
	st.Counters.Adjust(counter.Users, -members)
	if members != 0 {
		st.Stats.Count(ctx, stats.GuildMembers, -members, stats.T(stats.TagGuildID, string(d.GuildID)))
	}

	persisted(ctx, st.Persister.DeleteGuild(d.GuildID))
	return st.Metrics.Set(metric.CachedGuilds, nil, float64(st.Cache.Len()))
}
