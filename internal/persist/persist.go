// Package persist writes role changes to the role store behind the cache.
//
// Writes are fire-and-forget: Submit never blocks the event path. Jobs are
// partitioned by guild id onto worker goroutines, so writes for one guild
// (and therefore for one role key) are applied in submission order while
// different guilds proceed in parallel. Failed writes are retried with
// exponential backoff; a write that still fails is reported and never
// rolled back in the cache.
package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/spaolacci/murmur3"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/storage/rolestore"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/report"
)

// Op names a persistence operation. Used as the op metric label.
type Op string

const (
	OpUpsertRole  Op = "upsert_role"
	OpDeleteRole  Op = "delete_role"
	OpDeleteGuild Op = "delete_guild"
)

// Job is one persistence write.
type Job struct {
	Op      Op
	GuildID domain.GuildID
	Role    domain.Role   // OpUpsertRole
	RoleID  domain.RoleID // OpDeleteRole
}

// Config configures a Persister.
type Config struct {
	Workers         int
	QueueSize       int
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	WriteTimeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		QueueSize:       1024,
		MaxRetries:      5,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
	}
}

// Stats is a point-in-time view of persister activity.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Pending   int64  `json:"pending"`
}

// Persister applies Jobs to a RoleRepository asynchronously.
type Persister struct {
	cfg      Config
	repo     rolestore.RoleRepository
	metrics  *metric.Store
	reporter report.Reporter
	logger   logger.Logger

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool
	queues []chan Job

	ctx    context.Context // canceled when Close gives up draining
	cancel context.CancelFunc
	wg     sync.WaitGroup

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	pending   atomic.Int64
}

// New starts a persister. metrics and reporter may be nil.
func New(repo rolestore.RoleRepository, cfg Config, metrics *metric.Store, reporter report.Reporter, log logger.Logger) *Persister {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	if log == nil {
		log = logger.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister{
		cfg:      cfg,
		repo:     repo,
		metrics:  metrics,
		reporter: reporter,
		logger:   log.With("component", "persist"),
		queues:   make([]chan Job, cfg.Workers),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := range p.queues {
		ch := make(chan Job, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// UpsertRole submits a role upsert.
func (p *Persister) UpsertRole(guildID domain.GuildID, role domain.Role) error {
	return p.Submit(Job{Op: OpUpsertRole, GuildID: guildID, Role: role})
}

// DeleteRole submits a role delete.
func (p *Persister) DeleteRole(guildID domain.GuildID, roleID domain.RoleID) error {
	return p.Submit(Job{Op: OpDeleteRole, GuildID: guildID, RoleID: roleID})
}

// DeleteGuild submits the removal of every role of a guild.
func (p *Persister) DeleteGuild(guildID domain.GuildID) error {
	return p.Submit(Job{Op: OpDeleteGuild, GuildID: guildID})
}

// Submit enqueues job without blocking. When the guild's queue is full the
// job is dropped, counted and reported, and ErrPersistQueueFull returned.
func (p *Persister) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return domain.ErrPersistClosed
	}

	p.pending.Add(1)
	select {
	case p.queues[p.shardFor(job.GuildID)] <- job:
		p.submitted.Add(1)
		return nil
	default:
		p.pending.Add(-1)
		p.dropped.Add(1)
		err := domain.ErrPersistQueueFull.WithDetailsf("%s %s", job.Op, job.GuildID)
		p.count(metric.PersistDroppedTotal, job.Op)
		p.reporter.Report(p.ctx, report.Incident{
			Err:       err,
			Component: "persist",
			Tags:      map[string]string{"op": string(job.Op)},
		})
		return err
	}
}

// Flush waits until every submitted job has been applied or has failed.
func (p *Persister) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for p.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close stops accepting jobs and drains the queues. If ctx expires first,
// in-flight retries are abandoned and ctx.Err() is returned. Close is
// idempotent.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, ch := range p.queues {
		close(ch)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns current activity counters.
func (p *Persister) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
		Pending:   p.pending.Load(),
	}
}

func (p *Persister) runWorker(idx int, ch <-chan Job) {
	defer p.wg.Done()
	for job := range ch {
		p.process(idx, job)
		p.pending.Add(-1)
	}
}

func (p *Persister) process(idx int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(job, domain.ErrPersistFailed.WithDetailsf("%s %s: panic: %v", job.Op, job.GuildID, r))
		}
	}()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.InitialInterval
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, p.cfg.MaxRetries), p.ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.WriteTimeout)
		defer cancel()
		err := p.apply(ctx, job)
		if err != nil {
			p.logger.Debug("persist attempt failed",
				"worker", idx, "op", string(job.Op), "guild_id", string(job.GuildID),
				"attempt", attempt, "error", err)
		}
		return err
	}, b)
	if err != nil {
		p.fail(job, domain.ErrPersistFailed.WithDetailsf("%s %s after %d attempts", job.Op, job.GuildID, attempt).WithCause(err))
		return
	}
	p.completed.Add(1)
}

func (p *Persister) apply(ctx context.Context, job Job) error {
	switch job.Op {
	case OpUpsertRole:
		return p.repo.UpsertRole(ctx, job.GuildID, job.Role)
	case OpDeleteRole:
		return p.repo.DeleteRole(ctx, job.GuildID, job.RoleID)
	case OpDeleteGuild:
		return p.repo.DeleteGuild(ctx, job.GuildID)
	default:
		return backoff.Permanent(domain.ErrPersistFailed.WithDetailsf("unknown op %q", job.Op))
	}
}

func (p *Persister) fail(job Job, err error) {
	p.failed.Add(1)
	p.count(metric.PersistFailuresTotal, job.Op)
	p.reporter.Report(p.ctx, report.Incident{
		Err:       err,
		Component: "persist",
		Tags:      map[string]string{"op": string(job.Op)},
	})
}

func (p *Persister) count(name string, op Op) {
	if p.metrics == nil {
		return
	}
	if err := p.metrics.Inc(name, metric.L(metric.LabelOp, string(op))); err != nil {
		p.logger.Warn("metric update rejected", "metric", name, "error", err)
	}
}

func (p *Persister) shardFor(guildID domain.GuildID) int {
	return int(murmur3.Sum32([]byte(guildID)) % uint32(len(p.queues)))
}
