package gateway

import (
	"errors"
	"testing"

	"github.com/yndnr/guildsync/internal/core/domain"
)

func TestShardFor(t *testing.T) {
	if got := ShardFor("g1", 1); got != 0 {
		t.Fatalf("ShardFor(g1, 1) = %d, want 0", got)
	}
	if got := ShardFor("g1", 0); got != 0 {
		t.Fatalf("ShardFor(g1, 0) = %d, want 0", got)
	}
	for _, g := range []domain.GuildID{"a", "b", "81384788765712384", "x"} {
		s := ShardFor(g, 4)
		if s < 0 || s >= 4 {
			t.Fatalf("ShardFor(%s, 4) = %d out of range", g, s)
		}
		if again := ShardFor(g, 4); again != s {
			t.Fatalf("ShardFor(%s) not stable: %d vs %d", g, s, again)
		}
	}
}

func TestCodec_Decode(t *testing.T) {
	c := NewCodec(4)

	tests := []struct {
		name    string
		raw     string
		wantErr error
		check   func(t *testing.T, env domain.Envelope)
	}{
		{
			name: "member add with explicit shard",
			raw:  `{"t":"GUILD_MEMBER_ADD","s":2,"d":{"guild_id":"g1","user_id":"u1"}}`,
			check: func(t *testing.T, env domain.Envelope) {
				if env.Type != domain.EventMemberAdded || env.Shard != 2 {
					t.Fatalf("got %s shard %d", env.Type, env.Shard)
				}
				d := env.Data.(domain.MemberAddedData)
				if d.GuildID != "g1" || d.UserID != "u1" {
					t.Fatalf("payload = %+v", d)
				}
			},
		},
		{
			name: "shard derived from guild",
			raw:  `{"t":"GUILD_ROLE_CREATE","d":{"guild_id":"g9","role":{"id":"r1","name":"mod","permissions":"8"}}}`,
			check: func(t *testing.T, env domain.Envelope) {
				if env.Shard != ShardFor("g9", 4) {
					t.Fatalf("shard = %d, want %d", env.Shard, ShardFor("g9", 4))
				}
				d := env.Data.(domain.RoleCreatedData)
				if d.Role.Permissions != "8" {
					t.Fatalf("permissions = %q", d.Role.Permissions)
				}
			},
		},
		{
			name: "guild create backfill",
			raw:  `{"t":"GUILD_CREATE","s":0,"d":{"id":"g1","member_count":42,"roles":[{"id":"r1"}]}}`,
			check: func(t *testing.T, env domain.Envelope) {
				d := env.Data.(domain.GuildAvailableData)
				if d.MemberCount != 42 || len(d.Roles) != 1 {
					t.Fatalf("payload = %+v", d)
				}
			},
		},
		{
			name: "ready with null data",
			raw:  `{"t":"READY","s":1,"d":null}`,
			check: func(t *testing.T, env domain.Envelope) {
				if env.Type != domain.EventShardReady {
					t.Fatalf("type = %s", env.Type)
				}
			},
		},
		{
			name:    "ready without shard",
			raw:     `{"t":"READY","d":{}}`,
			wantErr: domain.ErrMalformedEnvelope,
		},
		{
			name:    "unknown type",
			raw:     `{"t":"TYPING_START","s":0,"d":{}}`,
			wantErr: domain.ErrUnknownEventType,
		},
		{
			name:    "bad json",
			raw:     `{"t":`,
			wantErr: domain.ErrMalformedEnvelope,
		},
		{
			name:    "payload of wrong shape",
			raw:     `{"t":"GUILD_MEMBER_ADD","s":0,"d":[1,2]}`,
			wantErr: domain.ErrMalformedEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := c.Decode([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if env.ID == "" {
				t.Fatal("envelope has no ID")
			}
			if env.ReceivedAt.IsZero() {
				t.Fatal("envelope has no ReceivedAt")
			}
			tt.check(t, env)
		})
	}
}

func TestCodec_DecodeAssignsDistinctIDs(t *testing.T) {
	c := NewCodec(1)
	raw := []byte(`{"t":"READY","s":0}`)
	a, err := c.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatalf("IDs collide: %s", a.ID)
	}
}

func TestCodec_EncodeDecode(t *testing.T) {
	c := NewCodec(2)
	in := domain.Envelope{
		Type:  domain.EventRoleDeleted,
		Shard: 1,
		Data:  domain.RoleDeletedData{GuildID: "g1", RoleID: "r7"},
	}
	raw, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", raw, err)
	}
	if out.Type != in.Type || out.Shard != in.Shard || out.Data != in.Data {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}
