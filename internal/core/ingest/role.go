package ingest

import (
	"context"
	"errors"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
)

// Values of the action label of RoleEventsTotal.
const (
	actionCreate = "create"
	actionUpdate = "update"
	actionDelete = "delete"
)

func roleCreated(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.RoleCreatedData)
	return upsertRole(ctx, st, env.Shard, d.GuildID, d.Role, actionCreate)
}

func roleUpdated(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.RoleUpdatedData)
	return upsertRole(ctx, st, env.Shard, d.GuildID, d.Role, actionUpdate)
}

// upsertRole writes the cache first, then hands the role to the persister.
func upsertRole(ctx context.Context, st *State, shard domain.ShardID, guildID domain.GuildID, role domain.Role, action string) error {
	st.Cache.UpsertRole(guildID, role)
	persisted(ctx, st.Persister.UpsertRole(guildID, role))
	return st.Metrics.Inc(metric.RoleEventsTotal, metric.L(
		metric.LabelShard, metric.ShardValue(shard),
		metric.LabelAction, action,
	))
}

// roleDeleted drops the role from the cache and the store.
func roleDeleted(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.RoleDeletedData)

	st.Cache.RemoveRole(d.GuildID, d.RoleID)
	persisted(ctx, st.Persister.DeleteRole(d.GuildID, d.RoleID))
	return st.Metrics.Inc(metric.RoleEventsTotal, metric.L(
		metric.LabelShard, metric.ShardValue(env.Shard),
		metric.LabelAction, actionDelete,
	))
}

// persisted logs a rejected persistence submission. Drops are already
// counted and reported by the persister, and never fail the handler.
func persisted(ctx context.Context, err error) {
	if err == nil {
		return
	}
	l := logger.L(ctx)
	if errors.Is(err, domain.ErrPersistQueueFull) {
		l.Debug("persistence write dropped", "error", err)
		return
	}
	l.Warn("persistence write rejected", "error", err)
}
