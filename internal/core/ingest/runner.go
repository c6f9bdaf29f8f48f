package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// DefaultQueueSize is the per-shard envelope queue capacity.
const DefaultQueueSize = 256

// Runner feeds envelopes to a Dispatcher with one worker per shard.
type Runner struct {
	d      *Dispatcher
	logger logger.Logger

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool
	queues []chan domain.Envelope
	wg     sync.WaitGroup

	pending atomic.Int64 // queued or being dispatched
}

// NewRunner starts one worker per shard of d.
func NewRunner(d *Dispatcher, queueSize int) *Runner {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Runner{
		d:      d,
		logger: d.state.Logger.With("component", "runner"),
		queues: make([]chan domain.Envelope, d.ShardCount()),
	}
	for i := range r.queues {
		ch := make(chan domain.Envelope, queueSize)
		r.queues[i] = ch
		r.wg.Add(1)
		go r.runWorker(domain.ShardID(i), ch)
	}
	return r
}

// Submit enqueues env on its shard's queue, blocking while the queue is
// full. Envelopes naming an unknown shard are routed to shard 0's worker,
// where the dispatcher rejects them.
func (r *Runner) Submit(ctx context.Context, env domain.Envelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return domain.ErrRunnerClosed
	}

	idx := 0
	if env.Shard >= 0 && int(env.Shard) < len(r.queues) {
		idx = int(env.Shard)
	}

	r.pending.Add(1)
	select {
	case r.queues[idx] <- env:
		return nil
	case <-ctx.Done():
		r.pending.Add(-1)
		return ctx.Err()
	}
}

// Pending returns the number of envelopes accepted but not yet dispatched.
func (r *Runner) Pending() int64 {
	return r.pending.Load()
}

// Flush waits until every accepted envelope has been dispatched.
func (r *Runner) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for r.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// QueueLen returns the number of envelopes waiting on a shard.
func (r *Runner) QueueLen(shard domain.ShardID) int {
	if shard < 0 || int(shard) >= len(r.queues) {
		return 0
	}
	return len(r.queues[shard])
}

// Close stops accepting envelopes, lets every worker drain its queue and
// waits for them to exit. Close is idempotent.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, ch := range r.queues {
		close(ch)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("shard runners stopped")
}

func (r *Runner) runWorker(shard domain.ShardID, ch <-chan domain.Envelope) {
	defer r.wg.Done()

	base := logger.WithShard(logger.WithLogger(context.Background(), r.d.state.Logger), int(shard))
	for env := range ch {
		r.dispatch(logger.WithEventID(base, env.ID), env)
		r.pending.Add(-1)
	}
}

func (r *Runner) dispatch(ctx context.Context, env domain.Envelope) {
	err := r.d.Dispatch(ctx, env)
	if err == nil {
		return
	}
	l := logger.L(ctx)
	if errors.Is(err, domain.ErrMalformedEnvelope) {
		l.Warn("dropped malformed envelope", "event", env.Type.String(), "error", err)
		return
	}
	l.Error("dispatch failed", "event", env.Type.String(), "error", err)
}
