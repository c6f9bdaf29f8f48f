package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/report"
)

// DefaultBacklogSize bounds the deferred envelopes kept per hydrating shard.
const DefaultBacklogSize = 4096

// Config configures a Dispatcher.
type Config struct {
	ShardCount  int
	BacklogSize int
}

type deferred struct {
	env domain.Envelope
	reg Registration
}

type backlog struct {
	mu    sync.Mutex
	items []deferred
}

// Dispatcher routes envelopes to registered handlers.
type Dispatcher struct {
	cfg   Config
	state *State
	table map[domain.EventType][]Registration

	gates    []*Gate
	backlogs []*backlog
}

// NewDispatcher builds the routing table. The table cannot be changed
// afterwards.
func NewDispatcher(cfg Config, st *State, regs ...Registration) (*Dispatcher, error) {
	if cfg.ShardCount <= 0 {
		return nil, domain.ErrInvalidConfig.WithDetailsf("shard count must be positive, got %d", cfg.ShardCount)
	}
	if cfg.BacklogSize <= 0 {
		cfg.BacklogSize = DefaultBacklogSize
	}
	if st == nil {
		st = &State{}
	}
	st = st.withDefaults()
	if st.Metrics == nil {
		reg, err := metric.NewStandardRegistry()
		if err != nil {
			return nil, err
		}
		if st.Metrics, err = metric.NewStore(reg); err != nil {
			return nil, err
		}
	}

	table := make(map[domain.EventType][]Registration)
	for i, r := range regs {
		if r.Handler == nil {
			return nil, fmt.Errorf("registration %d (%s): nil handler", i, r.Name)
		}
		if _, known := domain.ParseEventType(r.Type.String()); !known {
			return nil, fmt.Errorf("registration %d (%s): unknown event type %d", i, r.Name, r.Type)
		}
		if r.Name == "" {
			r.Name = r.Type.String()
		}
		table[r.Type] = append(table[r.Type], r)
	}

	d := &Dispatcher{
		cfg:      cfg,
		state:    st,
		table:    table,
		gates:    make([]*Gate, cfg.ShardCount),
		backlogs: make([]*backlog, cfg.ShardCount),
	}
	for i := range d.gates {
		d.gates[i] = &Gate{}
		d.backlogs[i] = &backlog{}
	}
	return d, nil
}

// State returns the session state handed to handlers.
func (d *Dispatcher) State() *State {
	return d.state
}

// ShardCount returns the number of shards served.
func (d *Dispatcher) ShardCount() int {
	return d.cfg.ShardCount
}

// Gate returns the readiness gate of a shard, or nil when out of range.
func (d *Dispatcher) Gate(shard domain.ShardID) *Gate {
	if !d.inRange(shard) {
		return nil
	}
	return d.gates[shard]
}

// AllReady reports whether every shard is ready.
func (d *Dispatcher) AllReady() bool {
	for _, g := range d.gates {
		if !g.Ready() {
			return false
		}
	}
	return true
}

// BacklogLen returns the number of deferred handler invocations of a shard.
func (d *Dispatcher) BacklogLen(shard domain.ShardID) int {
	if !d.inRange(shard) {
		return 0
	}
	b := d.backlogs[shard]
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Handles reports whether any handler is registered for t.
func (d *Dispatcher) Handles(t domain.EventType) bool {
	return len(d.table[t]) > 0
}

// Dispatch routes one envelope.
//
// Envelopes of a type without registrations are ignored, including the
// shard lifecycle events: the readiness gate only moves for registered
// READY and DISCONNECTED types. Envelopes naming an unknown shard or
// carrying an invalid payload are dropped and ErrMalformedEnvelope is
// returned. Handler failures are counted and logged but not returned.
//
// A guild backfill on a hydrating shard supersedes the deferred
// invocations already queued for that guild; they are discarded.
//
// Dispatch must not be called concurrently for the same shard.
func (d *Dispatcher) Dispatch(ctx context.Context, env domain.Envelope) error {
	regs := d.table[env.Type]
	if len(regs) == 0 {
		return nil
	}

	if !d.inRange(env.Shard) {
		d.countError(metric.InvalidShard, metric.ReasonMalformed)
		return domain.ErrMalformedEnvelope.
			WithDetailsf("%s: shard %d", env.Type, env.Shard).
			WithCause(domain.ErrShardOutOfRange)
	}
	shard := metric.ShardValue(env.Shard)
	if err := env.Validate(); err != nil {
		d.countError(shard, metric.ReasonMalformed)
		return err
	}

	d.inc(metric.EventsTotal, metric.L(metric.LabelShard, shard, metric.LabelType, env.Type.String()))

	gate := d.gates[env.Shard]
	switch env.Type {
	case domain.EventShardReady:
		if gate.MarkReady() {
			d.replay(ctx, env.Shard)
		}
	case domain.EventShardDisconnected:
		gate.Reset()
	case domain.EventGuildAvailable:
		if !gate.Ready() {
			d.supersede(ctx, env)
		}
	}

	for _, r := range regs {
		if r.Readiness == RequireReady && !gate.Ready() {
			d.deferInvocation(ctx, env, r)
			continue
		}
		d.invoke(ctx, r, env)
	}
	return nil
}

func (d *Dispatcher) deferInvocation(ctx context.Context, env domain.Envelope, r Registration) {
	b := d.backlogs[env.Shard]
	b.mu.Lock()
	full := len(b.items) >= d.cfg.BacklogSize
	if !full {
		b.items = append(b.items, deferred{env: env, reg: r})
	}
	b.mu.Unlock()

	if full {
		d.countError(metric.ShardValue(env.Shard), metric.ReasonBacklogOverflow)
		d.log(ctx).Warn("backlog full, dropping deferred handler",
			"handler", r.Name, "event", env.Type.String())
	}
}

// supersede drops the deferred invocations of the backfilled guild.
func (d *Dispatcher) supersede(ctx context.Context, env domain.Envelope) {
	guild, ok := domain.GuildOf(env.Data)
	if !ok {
		return
	}
	b := d.backlogs[env.Shard]
	b.mu.Lock()
	kept := b.items[:0]
	for _, it := range b.items {
		if g, scoped := domain.GuildOf(it.env.Data); scoped && g == guild {
			continue
		}
		kept = append(kept, it)
	}
	dropped := len(b.items) - len(kept)
	clear(b.items[len(kept):])
	b.items = kept
	b.mu.Unlock()

	if dropped > 0 {
		d.log(ctx).Debug("backfill superseded deferred events",
			"guild_id", string(guild), "count", dropped)
	}
}

// replay runs every deferred invocation of a shard in arrival order.
func (d *Dispatcher) replay(ctx context.Context, shard domain.ShardID) {
	b := d.backlogs[shard]
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()

	if len(items) == 0 {
		return
	}
	d.log(ctx).Info("replaying deferred events", "count", len(items))
	for _, it := range items {
		d.invoke(logger.WithEventID(ctx, it.env.ID), it.reg, it.env)
	}
}

// invoke runs one handler, isolating errors and panics.
func (d *Dispatcher) invoke(ctx context.Context, r Registration, env domain.Envelope) {
	shard := metric.ShardValue(env.Shard)
	defer func() {
		if rec := recover(); rec != nil {
			err := domain.ErrHandlerPanic.WithDetailsf("%s: %v", r.Name, rec)
			d.countError(shard, metric.ReasonHandlerPanic)
			d.log(ctx).Error("handler panicked", "handler", r.Name, "event", env.Type.String(), "error", err)
			d.state.Reporter.Report(ctx, report.Incident{
				Err:       err,
				Component: "dispatcher",
				Tags:      map[string]string{"shard": shard, "event": env.Type.String(), "handler": r.Name},
			})
		}
	}()

	if err := r.Handler.Handle(ctx, d.state, env); err != nil {
		d.countError(shard, metric.ReasonHandlerError)
		d.log(ctx).Warn("handler failed", "handler", r.Name, "event", env.Type.String(), "error", err)
	}
}

// log returns the session logger enriched with the shard and event id of ctx.
func (d *Dispatcher) log(ctx context.Context) logger.Logger {
	return logger.L(logger.WithLogger(ctx, d.state.Logger))
}

func (d *Dispatcher) inRange(shard domain.ShardID) bool {
	return shard >= 0 && int(shard) < d.cfg.ShardCount
}

func (d *Dispatcher) countError(shard, reason string) {
	d.inc(metric.EventErrorsTotal, metric.L(metric.LabelShard, shard, metric.LabelReason, reason))
}

func (d *Dispatcher) inc(name string, tuple metric.Tuple) {
	if err := d.state.Metrics.Inc(name, tuple); err != nil {
		d.state.Logger.Warn("metric update rejected", "metric", name, "error", err)
	}
}
