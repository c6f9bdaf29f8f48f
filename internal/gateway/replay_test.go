package gateway

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

func collect(out *[]domain.Envelope) Sink {
	return func(_ context.Context, env domain.Envelope) error {
		*out = append(*out, env)
		return nil
	}
}

func TestReplaySource_Run(t *testing.T) {
	input := strings.Join([]string{
		`# captured from a test guild`,
		`{"t":"GUILD_CREATE","s":0,"d":{"id":"g1","member_count":3}}`,
		``,
		`{"t":"NOT_A_THING","s":0,"d":{}}`,
		`{"t":"GUILD_MEMBER_ADD","s":0,"d":{"guild_id":"g1"}}`,
		`{broken`,
		`{"t":"READY","s":0}`,
	}, "\n")

	var decodeErrs []error
	src := NewReplaySource(strings.NewReader(input), NewCodec(1),
		func(_ []byte, err error) { decodeErrs = append(decodeErrs, err) }, logger.Nop())

	var got []domain.Envelope
	if err := src.Run(context.Background(), collect(&got)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []domain.EventType{domain.EventGuildAvailable, domain.EventMemberAdded, domain.EventShardReady}
	if len(got) != len(want) {
		t.Fatalf("delivered %d envelopes, want %d", len(got), len(want))
	}
	for i, typ := range want {
		if got[i].Type != typ {
			t.Errorf("envelope %d = %s, want %s", i, got[i].Type, typ)
		}
	}
	if len(decodeErrs) != 2 {
		t.Fatalf("decode errors = %d, want 2", len(decodeErrs))
	}
	if !errors.Is(decodeErrs[0], domain.ErrUnknownEventType) {
		t.Errorf("first decode error = %v", decodeErrs[0])
	}
	if !errors.Is(decodeErrs[1], domain.ErrMalformedEnvelope) {
		t.Errorf("second decode error = %v", decodeErrs[1])
	}
}

func TestReplaySource_SinkErrorStops(t *testing.T) {
	input := `{"t":"READY","s":0}` + "\n" + `{"t":"READY","s":0}`
	src := NewReplaySource(strings.NewReader(input), NewCodec(1), nil, logger.Nop())

	boom := errors.New("boom")
	calls := 0
	err := src.Run(context.Background(), func(context.Context, domain.Envelope) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if calls != 1 {
		t.Fatalf("sink called %d times, want 1", calls)
	}
}

func TestReplaySource_CanceledContext(t *testing.T) {
	src := NewReplaySource(strings.NewReader(`{"t":"READY","s":0}`), NewCodec(1), nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []domain.Envelope
	if err := src.Run(ctx, collect(&got)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("delivered %d envelopes after cancel", len(got))
	}
}

func TestOpenReplayFile(t *testing.T) {
	c := NewCodec(2)
	var lines []string
	for _, env := range []domain.Envelope{
		{Type: domain.EventGuildAvailable, Shard: 1, Data: domain.GuildAvailableData{GuildID: "g1", MemberCount: 5}},
		{Type: domain.EventShardReady, Shard: 1, Data: domain.ShardReadyData{}},
	} {
		raw, err := c.Encode(env)
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, string(raw))
	}
	path := filepath.Join(t.TempDir(), "events.ndjson")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := OpenReplayFile(path, c, nil, logger.Nop())
	if err != nil {
		t.Fatalf("OpenReplayFile() error = %v", err)
	}
	var got []domain.Envelope
	if err := src.Run(context.Background(), collect(&got)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 || got[0].Shard != 1 {
		t.Fatalf("got %+v", got)
	}

	if _, err := OpenReplayFile(filepath.Join(t.TempDir(), "missing"), c, nil, logger.Nop()); err == nil {
		t.Fatal("OpenReplayFile(missing) succeeded")
	}
}
