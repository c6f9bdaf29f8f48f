package ingest

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/stats"
)

// memberAdded counts a join: approximate users +1, the shard's join
// counter, and the guild's external member stat.
func memberAdded(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.MemberAddedData)
	guild := string(d.GuildID)

	st.Counters.Adjust(counter.Users, 1)
	st.Cache.AdjustMemberCount(d.GuildID, 1)
	st.Stats.Count(ctx, stats.GuildMembers, 1, stats.T(stats.TagGuildID, guild))
	st.Stats.Count(ctx, stats.GuildJoins, 1)
	return st.Metrics.Inc(metric.GuildJoinsTotal, metric.L(metric.LabelShard, metric.ShardValue(env.Shard)))
}

// memberRemoved is the mirror image of memberAdded.
func memberRemoved(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.MemberRemovedData)
	guild := string(d.GuildID)

	st.Counters.Adjust(counter.Users, -1)
	st.Cache.AdjustMemberCount(d.GuildID, -1)
	st.Stats.Count(ctx, stats.GuildMembers, -1, stats.T(stats.TagGuildID, guild))
	st.Stats.Count(ctx, stats.GuildLeaves, 1)
	return st.Metrics.Inc(metric.GuildLeavesTotal, metric.L(metric.LabelShard, metric.ShardValue(env.Shard)))
}

// memberUpdated keeps the bot's own membership record current. Updates for
// other users are ignored.
func memberUpdated(_ context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.MemberUpdatedData)
	if st.SelfID == "" || d.UserID != st.SelfID {
		return nil
	}
	st.Cache.SetSelfMember(d.GuildID, d.Member)
	return nil
}
