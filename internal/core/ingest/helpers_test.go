package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/storage/guildcache"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/stats"
)

type writeCall struct {
	op      string
	guildID domain.GuildID
	role    domain.Role
	roleID  domain.RoleID
}

type recordingWriter struct {
	mu    sync.Mutex
	calls []writeCall
}

func (w *recordingWriter) add(c writeCall) error {
	w.mu.Lock()
	w.calls = append(w.calls, c)
	w.mu.Unlock()
	return nil
}

func (w *recordingWriter) UpsertRole(g domain.GuildID, r domain.Role) error {
	return w.add(writeCall{op: "upsert", guildID: g, role: r})
}

func (w *recordingWriter) DeleteRole(g domain.GuildID, id domain.RoleID) error {
	return w.add(writeCall{op: "delete", guildID: g, roleID: id})
}

func (w *recordingWriter) DeleteGuild(g domain.GuildID) error {
	return w.add(writeCall{op: "delete_guild", guildID: g})
}

func (w *recordingWriter) Calls(op string) []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []writeCall
	for _, c := range w.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fixture struct {
	d         *Dispatcher
	st        *State
	writer    *recordingWriter
	collector *stats.Collector
}

func newFixture(t *testing.T, shards int, regs ...Registration) *fixture {
	t.Helper()
	reg, err := metric.NewStandardRegistry()
	if err != nil {
		t.Fatal(err)
	}
	store, err := metric.NewStore(reg)
	if err != nil {
		t.Fatal(err)
	}
	provider, collector := stats.NewProvider()
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	writer := &recordingWriter{}
	st := &State{
		SelfID:    "bot",
		Cache:     guildcache.New(),
		Counters:  counter.New(counter.Users, counter.Guilds),
		Metrics:   store,
		Stats:     stats.NewOTelSink(provider.Meter("ingest-test"), nil),
		Persister: writer,
		Logger:    logger.Nop(),
	}
	if regs == nil {
		regs = DefaultRegistrations()
	}
	d, err := NewDispatcher(Config{ShardCount: shards, BacklogSize: 8}, st, regs...)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return &fixture{d: d, st: d.State(), writer: writer, collector: collector}
}

func (f *fixture) dispatch(t *testing.T, env domain.Envelope) {
	t.Helper()
	if err := f.d.Dispatch(context.Background(), env); err != nil {
		t.Fatalf("Dispatch(%s) error = %v", env.Type, err)
	}
}

func (f *fixture) metric(t *testing.T, name string, tuple metric.Tuple) float64 {
	t.Helper()
	v, _, err := f.st.Metrics.Value(name, tuple)
	if err != nil {
		t.Fatalf("Value(%s) error = %v", name, err)
	}
	return v
}

func (f *fixture) stat(t *testing.T, name string, tags ...stats.Tag) int64 {
	t.Helper()
	v, _, err := f.collector.Value(context.Background(), name, tags...)
	if err != nil {
		t.Fatalf("collector.Value(%s) error = %v", name, err)
	}
	return v
}

func env(shard domain.ShardID, data domain.Payload) domain.Envelope {
	var typ domain.EventType
	switch data.(type) {
	case domain.MemberAddedData:
		typ = domain.EventMemberAdded
	case domain.MemberRemovedData:
		typ = domain.EventMemberRemoved
	case domain.MemberUpdatedData:
		typ = domain.EventMemberUpdated
	case domain.RoleCreatedData:
		typ = domain.EventRoleCreated
	case domain.RoleUpdatedData:
		typ = domain.EventRoleUpdated
	case domain.RoleDeletedData:
		typ = domain.EventRoleDeleted
	case domain.GuildAvailableData:
		typ = domain.EventGuildAvailable
	case domain.GuildRemovedData:
		typ = domain.EventGuildRemoved
	case domain.ShardReadyData:
		typ = domain.EventShardReady
	case domain.ShardDisconnectedData:
		typ = domain.EventShardDisconnected
	}
	return domain.Envelope{Type: typ, Shard: shard, Data: data, ReceivedAt: time.Now()}
}
