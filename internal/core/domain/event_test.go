package domain

import (
	"errors"
	"testing"
)

func TestEventType_WireNames(t *testing.T) {
	for _, et := range EventTypes() {
		name := et.String()
		if name == "UNKNOWN" {
			t.Errorf("event type %d has no wire name", et)
			continue
		}
		parsed, ok := ParseEventType(name)
		if !ok || parsed != et {
			t.Errorf("ParseEventType(%q) = (%v, %v), want (%v, true)", name, parsed, ok, et)
		}
	}

	if _, ok := ParseEventType("TYPING_START"); ok {
		t.Error("ParseEventType should reject unknown wire names")
	}
	if EventUnknown.String() != "UNKNOWN" {
		t.Errorf("EventUnknown.String() = %q", EventUnknown.String())
	}
}

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		wantErr bool
	}{
		{
			name: "member added ok",
			env:  Envelope{Type: EventMemberAdded, Data: MemberAddedData{GuildID: "1"}},
		},
		{
			name:    "member added missing guild",
			env:     Envelope{Type: EventMemberAdded, Data: MemberAddedData{}},
			wantErr: true,
		},
		{
			name:    "missing data",
			env:     Envelope{Type: EventRoleCreated},
			wantErr: true,
		},
		{
			name:    "payload for another type",
			env:     Envelope{Type: EventRoleCreated, Data: MemberAddedData{GuildID: "1"}},
			wantErr: true,
		},
		{
			name: "role created ok",
			env: Envelope{Type: EventRoleCreated, Data: RoleCreatedData{
				GuildID: "g1", Role: Role{ID: "r1", Name: "Admin", Permissions: "8"},
			}},
		},
		{
			name:    "role created missing role id",
			env:     Envelope{Type: EventRoleCreated, Data: RoleCreatedData{GuildID: "g1", Role: Role{Name: "x"}}},
			wantErr: true,
		},
		{
			name:    "member updated missing member",
			env:     Envelope{Type: EventMemberUpdated, Data: MemberUpdatedData{GuildID: "g1", UserID: "u1"}},
			wantErr: true,
		},
		{
			name:    "role deleted missing role id",
			env:     Envelope{Type: EventRoleDeleted, Data: RoleDeletedData{GuildID: "g1"}},
			wantErr: true,
		},
		{
			name:    "guild available with bad role",
			env:     Envelope{Type: EventGuildAvailable, Data: GuildAvailableData{GuildID: "g1", Roles: []Role{{}}}},
			wantErr: true,
		},
		{
			name: "shard ready has no required fields",
			env:  Envelope{Type: EventShardReady, Data: ShardReadyData{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEnvelope) {
					t.Errorf("Validate() = %v, want ErrMalformedEnvelope", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestMember_Clone(t *testing.T) {
	var nilMember *Member
	if nilMember.Clone() != nil {
		t.Error("Clone of nil member should be nil")
	}

	m := &Member{UserID: "u1", Roles: []RoleID{"r1"}}
	c := m.Clone()
	c.Roles[0] = "changed"
	if m.Roles[0] != "r1" {
		t.Error("Clone should not share the roles slice")
	}
}
