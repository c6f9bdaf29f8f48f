package ingest

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
)

func shardReady(ctx context.Context, st *State, env domain.Envelope) error {
	logger.L(ctx).Info("shard ready")
	return st.Metrics.Set(metric.ShardReady, metric.L(metric.LabelShard, metric.ShardValue(env.Shard)), 1)
}

func shardDisconnected(ctx context.Context, st *State, env domain.Envelope) error {
	d := env.Data.(domain.ShardDisconnectedData)
	logger.L(ctx).Warn("shard disconnected", "reason", d.Reason)
	return st.Metrics.Set(metric.ShardReady, metric.L(metric.LabelShard, metric.ShardValue(env.Shard)), 0)
}
