package logger

import (
	"context"
	"strconv"
)

type contextKey string

const (
	loggerKey  contextKey = "guildsync.logger"
	shardKey   contextKey = "guildsync.shard"
	eventIDKey contextKey = "guildsync.event_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithShard records the shard an operation runs on.
func WithShard(ctx context.Context, shard int) context.Context {
	return context.WithValue(ctx, shardKey, shard)
}

// ShardFromContext returns the shard recorded by WithShard.
func ShardFromContext(ctx context.Context) (int, bool) {
	s, ok := ctx.Value(shardKey).(int)
	return s, ok
}

// WithEventID records the envelope id being processed.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext returns the id recorded by WithEventID.
func EventIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey).(string); ok {
		return id
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the shard and event id found in the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if shard, ok := ShardFromContext(ctx); ok {
		l = l.With("shard", strconv.Itoa(shard))
	}
	if id := EventIDFromContext(ctx); id != "" {
		l = l.With("event_id", id)
	}

	return l
}
