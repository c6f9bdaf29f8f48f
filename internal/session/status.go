package session

import (
	"context"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/core/ingest"
	"github.com/yndnr/guildsync/internal/server/httpserver/handler"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/storage/guildcache"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
)

// Ready reports whether every shard finished its initial synchronization.
func (s *Session) Ready() bool {
	return s.dispatcher.AllReady()
}

// Snapshot implements handler.StatusSource.
func (s *Session) Snapshot(ctx context.Context) (handler.Snapshot, error) {
	snap := handler.Snapshot{
		Counters: s.counters.Snapshot(),
		Cache:    s.cache.Stats(),
		Persist:  s.persister.Stats(),
	}
	for i := 0; i < s.dispatcher.ShardCount(); i++ {
		shard := domain.ShardID(i)
		g := s.dispatcher.Gate(shard)
		since, _ := g.ReadySince()
		snap.Shards = append(snap.Shards, handler.ShardStatus{
			Shard:      i,
			State:      g.State().String(),
			ReadySince: since,
			Backlog:    s.dispatcher.BacklogLen(shard),
			Queue:      s.runner.QueueLen(shard),
		})
	}
	points, err := s.collector.Collect(ctx)
	if err != nil {
		return handler.Snapshot{}, err
	}
	snap.Stats = points
	return snap, nil
}

// Cache returns the guild state cache.
func (s *Session) Cache() *guildcache.Cache { return s.cache }

// Counters returns the approximate counters.
func (s *Session) Counters() *counter.Store { return s.counters }

// Metrics returns the labeled metric store.
func (s *Session) Metrics() *metric.Store { return s.metrics }

// Dispatcher returns the event dispatcher.
func (s *Session) Dispatcher() *ingest.Dispatcher { return s.dispatcher }
