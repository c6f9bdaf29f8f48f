package domain

import "time"

// EventType enumerates the dispatch events the ingestion core understands.
type EventType int

const (
	// EventUnknown is the zero value and is never dispatched to handlers.
	EventUnknown EventType = iota
	EventMemberAdded
	EventMemberRemoved
	EventMemberUpdated
	EventRoleCreated
	EventRoleUpdated
	EventRoleDeleted
	// EventGuildAvailable carries the bulk backfill of one guild.
	EventGuildAvailable
	// EventGuildRemoved reports the bot left (or lost access to) a guild.
	EventGuildRemoved
	// EventShardReady marks the end of the initial synchronization of a shard.
	EventShardReady
	// EventShardDisconnected marks the loss of a shard connection.
	EventShardDisconnected
)

var eventWireNames = map[EventType]string{
	EventMemberAdded:       "GUILD_MEMBER_ADD",
	EventMemberRemoved:     "GUILD_MEMBER_REMOVE",
	EventMemberUpdated:     "GUILD_MEMBER_UPDATE",
	EventRoleCreated:       "GUILD_ROLE_CREATE",
	EventRoleUpdated:       "GUILD_ROLE_UPDATE",
	EventRoleDeleted:       "GUILD_ROLE_DELETE",
	EventGuildAvailable:    "GUILD_CREATE",
	EventGuildRemoved:      "GUILD_DELETE",
	EventShardReady:        "READY",
	EventShardDisconnected: "DISCONNECTED",
}

var eventsByWireName = func() map[string]EventType {
	m := make(map[string]EventType, len(eventWireNames))
	for t, name := range eventWireNames {
		m[name] = t
	}
	return m
}()

// String returns the wire name of the event type.
func (t EventType) String() string {
	if name, ok := eventWireNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseEventType maps a wire name to an EventType.
func ParseEventType(name string) (EventType, bool) {
	t, ok := eventsByWireName[name]
	return t, ok
}

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventMemberAdded,
		EventMemberRemoved,
		EventMemberUpdated,
		EventRoleCreated,
		EventRoleUpdated,
		EventRoleDeleted,
		EventGuildAvailable,
		EventGuildRemoved,
		EventShardReady,
		EventShardDisconnected,
	}
}

// Payload is the type-specific body of an envelope.
type Payload interface {
	// Validate reports a missing required field as ErrMalformedEnvelope.
	Validate() error
}

// Envelope is a single dispatch event tagged with its originating shard.
//
// Envelopes are immutable once built and are consumed exactly once.
type Envelope struct {
	ID         string // ULID assigned by the gateway, used for log correlation
	Type       EventType
	Shard      ShardID
	Data       Payload
	ReceivedAt time.Time
}

// Validate checks the envelope carries a payload of the right shape.
func (e Envelope) Validate() error {
	if e.Data == nil {
		return ErrMalformedEnvelope.WithDetailsf("%s: missing data", e.Type)
	}
	if !payloadMatches(e.Type, e.Data) {
		return ErrMalformedEnvelope.WithDetailsf("%s: unexpected payload %T", e.Type, e.Data)
	}
	return e.Data.Validate()
}

func payloadMatches(t EventType, p Payload) bool {
	switch p.(type) {
	case MemberAddedData:
		return t == EventMemberAdded
	case MemberRemovedData:
		return t == EventMemberRemoved
	case MemberUpdatedData:
		return t == EventMemberUpdated
	case RoleCreatedData:
		return t == EventRoleCreated
	case RoleUpdatedData:
		return t == EventRoleUpdated
	case RoleDeletedData:
		return t == EventRoleDeleted
	case GuildAvailableData:
		return t == EventGuildAvailable
	case GuildRemovedData:
		return t == EventGuildRemoved
	case ShardReadyData:
		return t == EventShardReady
	case ShardDisconnectedData:
		return t == EventShardDisconnected
	}
	return false
}

// GuildScoped is implemented by payloads that concern exactly one guild.
type GuildScoped interface {
	Guild() GuildID
}

// GuildOf returns the guild a payload concerns, if any.
func GuildOf(p Payload) (GuildID, bool) {
	g, ok := p.(GuildScoped)
	if !ok {
		return "", false
	}
	return g.Guild(), true
}

func requireGuild(id GuildID) error {
	if id == "" {
		return ErrMalformedEnvelope.WithDetails("guild_id is required")
	}
	return nil
}

// MemberAddedData is the payload of EventMemberAdded.
type MemberAddedData struct {
	GuildID GuildID `json:"guild_id"`
	UserID  UserID  `json:"user_id,omitempty"`
}

func (d MemberAddedData) Guild() GuildID { return d.GuildID }

func (d MemberAddedData) Validate() error { return requireGuild(d.GuildID) }

// MemberRemovedData is the payload of EventMemberRemoved.
type MemberRemovedData struct {
	GuildID GuildID `json:"guild_id"`
	UserID  UserID  `json:"user_id,omitempty"`
}

func (d MemberRemovedData) Guild() GuildID { return d.GuildID }

func (d MemberRemovedData) Validate() error { return requireGuild(d.GuildID) }

// MemberUpdatedData is the payload of EventMemberUpdated.
type MemberUpdatedData struct {
	GuildID GuildID `json:"guild_id"`
	UserID  UserID  `json:"user_id"`
	Member  *Member `json:"member"`
}

func (d MemberUpdatedData) Guild() GuildID { return d.GuildID }

func (d MemberUpdatedData) Validate() error {
	if err := requireGuild(d.GuildID); err != nil {
		return err
	}
	if d.UserID == "" {
		return ErrMalformedEnvelope.WithDetails("user_id is required")
	}
	if d.Member == nil {
		return ErrMalformedEnvelope.WithDetails("member is required")
	}
	return nil
}

// RoleCreatedData is the payload of EventRoleCreated.
type RoleCreatedData struct {
	GuildID GuildID `json:"guild_id"`
	Role    Role    `json:"role"`
}

func (d RoleCreatedData) Guild() GuildID { return d.GuildID }

func (d RoleCreatedData) Validate() error {
	if err := requireGuild(d.GuildID); err != nil {
		return err
	}
	return d.Role.Validate()
}

// RoleUpdatedData is the payload of EventRoleUpdated.
type RoleUpdatedData struct {
	GuildID GuildID `json:"guild_id"`
	Role    Role    `json:"role"`
}

func (d RoleUpdatedData) Guild() GuildID { return d.GuildID }

func (d RoleUpdatedData) Validate() error {
	if err := requireGuild(d.GuildID); err != nil {
		return err
	}
	return d.Role.Validate()
}

// RoleDeletedData is the payload of EventRoleDeleted.
type RoleDeletedData struct {
	GuildID GuildID `json:"guild_id"`
	RoleID  RoleID  `json:"role_id"`
}

func (d RoleDeletedData) Guild() GuildID { return d.GuildID }

func (d RoleDeletedData) Validate() error {
	if err := requireGuild(d.GuildID); err != nil {
		return err
	}
	if d.RoleID == "" {
		return ErrMalformedEnvelope.WithDetails("role_id is required")
	}
	return nil
}

// GuildAvailableData is the payload of EventGuildAvailable.
type GuildAvailableData struct {
	GuildID     GuildID `json:"id"`
	MemberCount int64   `json:"member_count"`
	Roles       []Role  `json:"roles"`
	Self        *Member `json:"self,omitempty"`
}

func (d GuildAvailableData) Guild() GuildID { return d.GuildID }

func (d GuildAvailableData) Validate() error {
	if err := requireGuild(d.GuildID); err != nil {
		return err
	}
	for _, r := range d.Roles {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GuildRemovedData is the payload of EventGuildRemoved.
type GuildRemovedData struct {
	GuildID GuildID `json:"id"`
}

func (d GuildRemovedData) Guild() GuildID { return d.GuildID }

func (d GuildRemovedData) Validate() error { return requireGuild(d.GuildID) }

// ShardReadyData is the payload of EventShardReady.
type ShardReadyData struct {
	SessionID string `json:"session_id,omitempty"`
}

func (ShardReadyData) Validate() error { return nil }

// ShardDisconnectedData is the payload of EventShardDisconnected.
type ShardDisconnectedData struct {
	Reason string `json:"reason,omitempty"`
}

func (ShardDisconnectedData) Validate() error { return nil }
