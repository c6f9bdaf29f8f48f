package session

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/gateway"
	"github.com/yndnr/guildsync/internal/server/config"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/storage/rolestore"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/pkg/cmap"
)

func writeReplay(t *testing.T, shards int, lines ...any) string {
	t.Helper()
	codec := gateway.NewCodec(shards)
	var out []string
	for _, l := range lines {
		switch v := l.(type) {
		case string:
			out = append(out, v)
		case domain.Envelope:
			raw, err := codec.Encode(v)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, string(raw))
		}
	}
	path := filepath.Join(t.TempDir(), "events.ndjson")
	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func ev(shard domain.ShardID, typ domain.EventType, data domain.Payload) domain.Envelope {
	return domain.Envelope{Type: typ, Shard: shard, Data: data}
}

func testConfig(t *testing.T, replay, dataDir string) *config.ServerConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Bot.SelfID = "bot"
	cfg.Gateway.ReplayFile = replay
	cfg.Gateway.ShardCount = 2
	cfg.Storage.DataDir = dataDir
	cfg.Metrics.Addr = ""
	cfg.Metrics.CounterInterval = 0
	if err := config.Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	return cfg
}

func openSession(t *testing.T, cfg *config.ServerConfig) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{Config: cfg, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func runToEnd(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	s.PublishCounters()
}

func replayScript(t *testing.T) string {
	return writeReplay(t, 2,
		ev(0, domain.EventGuildAvailable, domain.GuildAvailableData{
			GuildID:     "g1",
			MemberCount: 10,
			Roles:       []domain.Role{{ID: "r1", Name: "everyone"}, {ID: "r2", Name: "mods"}},
			Self:        &domain.Member{UserID: "bot"},
		}),
		ev(0, domain.EventMemberAdded, domain.MemberAddedData{GuildID: "g1", UserID: "u1"}),
		ev(0, domain.EventMemberAdded, domain.MemberAddedData{GuildID: "g1", UserID: "u2"}),
		ev(0, domain.EventMemberRemoved, domain.MemberRemovedData{GuildID: "g1", UserID: "u1"}),
		`{"t":"GUILD_ROLE_CREATE","s":0,"d":`, // truncated frame
		ev(0, domain.EventRoleCreated, domain.RoleCreatedData{GuildID: "g1", Role: domain.Role{ID: "r3", Name: "vip"}}),
		ev(0, domain.EventRoleDeleted, domain.RoleDeletedData{GuildID: "g1", RoleID: "r1"}),
		ev(0, domain.EventRoleUpdated, domain.RoleUpdatedData{GuildID: "g1", Role: domain.Role{ID: "r2", Name: "admins", Permissions: "8"}}),
		ev(0, domain.EventShardReady, domain.ShardReadyData{}),
		ev(0, domain.EventMemberUpdated, domain.MemberUpdatedData{GuildID: "g1", UserID: "bot", Member: &domain.Member{UserID: "bot", Nick: "guildsync"}}),
		ev(1, domain.EventGuildAvailable, domain.GuildAvailableData{GuildID: "g2", MemberCount: 5, Roles: []domain.Role{{ID: "r9"}}}),
		ev(1, domain.EventShardReady, domain.ShardReadyData{}),
		ev(1, domain.EventGuildRemoved, domain.GuildRemovedData{GuildID: "g2"}),
	)
}

func TestSession_ReplayEndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	s := openSession(t, testConfig(t, replayScript(t), dataDir))
	runToEnd(t, s)

	if got := s.Counters().Read(counter.Users); got != 11 {
		t.Errorf("users = %d, want 11", got)
	}
	if got := s.Counters().Read(counter.Guilds); got != 1 {
		t.Errorf("guilds = %d, want 1", got)
	}
	if !s.Ready() {
		t.Error("Ready() = false after both shards sent READY")
	}

	roles, ok := s.Cache().SortedRoles("g1")
	if !ok || len(roles) != 2 || roles[0].Name != "admins" || roles[1].ID != "r3" {
		t.Errorf("g1 roles = %+v", roles)
	}
	if s.Cache().HasGuild("g2") {
		t.Error("g2 still cached after GUILD_DELETE")
	}
	if self, ok := s.Cache().SelfMember("g1"); !ok || self.Nick != "guildsync" {
		t.Errorf("self member = %+v", self)
	}

	m := s.Metrics()
	if v, _, _ := m.Value(metric.ApproximateCount, metric.L(metric.LabelCounter, counter.Users)); v != 11 {
		t.Errorf("approximate_count{users} = %v", v)
	}
	if v, _, _ := m.Value(metric.CachedGuilds, nil); v != 1 {
		t.Errorf("cached_guilds = %v", v)
	}
	if v, _, _ := m.Value(metric.EventErrorsTotal, metric.L(metric.LabelShard, metric.InvalidShard, metric.LabelReason, metric.ReasonMalformed)); v != 1 {
		t.Errorf("malformed frames = %v, want 1", v)
	}
	if v, _, _ := m.Value(metric.GuildJoinsTotal, metric.L(metric.LabelShard, "0")); v != 2 {
		t.Errorf("guild_joins_total{shard=0} = %v", v)
	}

	snap, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap.Shards) != 2 || snap.Shards[0].State != "ready" || snap.Counters[counter.Users] != 11 {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	store, err := rolestore.OpenBadger(rolestore.DefaultConfig(dataDir), logger.Nop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	persisted, err := store.ListRoles(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 2 || persisted[0].ID != "r2" || persisted[0].Name != "admins" || persisted[1].ID != "r3" {
		t.Errorf("persisted g1 roles = %+v", persisted)
	}
	if gone, _ := store.ListRoles(context.Background(), "g2"); len(gone) != 0 {
		t.Errorf("persisted g2 roles = %+v", gone)
	}
}

func TestSession_CacheStripesIndependentOfShards(t *testing.T) {
	cfg := testConfig(t, writeReplay(t, 1), t.TempDir())
	cfg.Gateway.ShardCount = 1
	s := openSession(t, cfg)
	if got := s.Cache().Stripes(); got != cmap.DefaultShardCount {
		t.Errorf("Cache().Stripes() = %d with one gateway shard, want %d", got, cmap.DefaultShardCount)
	}
}

func TestSession_WarmStart(t *testing.T) {
	dataDir := t.TempDir()
	first := openSession(t, testConfig(t, replayScript(t), dataDir))
	runToEnd(t, first)
	if err := first.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := openSession(t, testConfig(t, writeReplay(t, 2), dataDir))
	roles, ok := second.Cache().SortedRoles("g1")
	if !ok || len(roles) != 2 {
		t.Fatalf("warm roles = %+v", roles)
	}
	if second.Cache().Available("g1") {
		t.Error("warm-started guild should not be available before its backfill")
	}
	if got := second.Counters().Read(counter.Guilds); got != 0 {
		t.Errorf("guilds = %d after warm start, want 0", got)
	}
}

func TestSession_StatusServer(t *testing.T) {
	cfg := testConfig(t, writeReplay(t, 2,
		ev(0, domain.EventShardReady, domain.ShardReadyData{}),
		ev(1, domain.EventShardReady, domain.ShardReadyData{}),
	), "")
	cfg.Metrics.Addr = "127.0.0.1:0"
	s := openSession(t, cfg)
	if s.http == nil {
		t.Fatal("status server not started")
	}
	runToEnd(t, s)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get("http://" + s.http.Addr() + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, _ := get("/ready"); code != http.StatusOK {
		t.Errorf("/ready = %d", code)
	}
	code, body := get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, `guildsync_shard_ready{shard="1"} 1`) {
		t.Errorf("/metrics = %d\n%s", code, body)
	}
	code, body = get("/debug/counters")
	if code != http.StatusOK {
		t.Fatalf("/debug/counters = %d", code)
	}
	var resp struct {
		Data struct {
			Counters map[string]int64 `json:"counters"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.Data.Counters[counter.Users]; !ok {
		t.Errorf("counters = %v", resp.Data.Counters)
	}
}

func TestSession_BindFailureIsNotFatal(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	cfg := testConfig(t, writeReplay(t, 2), "")
	cfg.Metrics.Addr = busy.Addr().String()
	s := openSession(t, cfg)
	if s.http != nil {
		t.Fatal("status server should be disabled after bind failure")
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("Open(nil config) succeeded")
	}

	cfg := config.Default()
	cfg.Gateway.ReplayFile = filepath.Join(t.TempDir(), "missing.ndjson")
	cfg.Metrics.Addr = ""
	if _, err := Open(context.Background(), Options{Config: cfg, Logger: logger.Nop()}); err == nil {
		t.Fatal("Open() with a missing replay file succeeded")
	}
}

func TestSession_CustomSource(t *testing.T) {
	cfg := testConfig(t, writeReplay(t, 2), "")
	src := sourceFunc(func(ctx context.Context, sink gateway.Sink) error {
		for i := 0; i < 3; i++ {
			if err := sink(ctx, ev(1, domain.EventMemberAdded, domain.MemberAddedData{GuildID: "g"})); err != nil {
				return err
			}
		}
		return nil
	})
	s, err := Open(context.Background(), Options{Config: cfg, Logger: logger.Nop(), Source: src, Repository: rolestore.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(context.Background())
	runToEnd(t, s)

	if got := s.Counters().Read(counter.Users); got != 3 {
		t.Fatalf("users = %d, want 3", got)
	}
}

type sourceFunc func(ctx context.Context, sink gateway.Sink) error

func (f sourceFunc) Run(ctx context.Context, sink gateway.Sink) error { return f(ctx, sink) }
