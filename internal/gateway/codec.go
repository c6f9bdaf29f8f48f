package gateway

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spaolacci/murmur3"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// Frame is the wire representation of an envelope.
type Frame struct {
	T string          `json:"t"`
	S *int            `json:"s,omitempty"`
	D json.RawMessage `json:"d"`
}

// ShardFor maps a guild to a shard.
func ShardFor(guildID domain.GuildID, shardCount int) domain.ShardID {
	if shardCount <= 1 {
		return 0
	}
	return domain.ShardID(murmur3.Sum32([]byte(guildID)) % uint32(shardCount))
}

// Codec converts between frames and envelopes.
type Codec struct {
	shardCount int
	now        func() time.Time
}

// NewCodec creates a codec for a session with shardCount shards.
func NewCodec(shardCount int) *Codec {
	return &Codec{shardCount: shardCount, now: time.Now}
}

// Decode parses one frame. Unknown event names return ErrUnknownEventType;
// undecodable frames return ErrMalformedEnvelope. The payload itself is
// validated later by the dispatcher.
func (c *Codec) Decode(raw []byte) (domain.Envelope, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Envelope{}, domain.ErrMalformedEnvelope.WithDetails("frame").WithCause(err)
	}

	typ, ok := domain.ParseEventType(f.T)
	if !ok {
		return domain.Envelope{}, domain.ErrUnknownEventType.WithDetails(f.T)
	}

	data, err := decodePayload(typ, f.D)
	if err != nil {
		return domain.Envelope{}, domain.ErrMalformedEnvelope.WithDetails(f.T).WithCause(err)
	}

	env := domain.Envelope{
		ID:         newID(),
		Type:       typ,
		Data:       data,
		ReceivedAt: c.now(),
	}
	switch {
	case f.S != nil:
		env.Shard = domain.ShardID(*f.S)
	case guildOf(data) != "":
		env.Shard = ShardFor(guildOf(data), c.shardCount)
	default:
		return domain.Envelope{}, domain.ErrMalformedEnvelope.WithDetailsf("%s: shard is required", f.T)
	}
	return env, nil
}

func newID() string {
	return ulid.Make().String()
}

// Encode renders an envelope as a frame.
func (c *Codec) Encode(env domain.Envelope) ([]byte, error) {
	d, err := json.Marshal(env.Data)
	if err != nil {
		return nil, err
	}
	s := int(env.Shard)
	return json.Marshal(Frame{T: env.Type.String(), S: &s, D: d})
}

func decodePayload(typ domain.EventType, raw json.RawMessage) (domain.Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	switch typ {
	case domain.EventMemberAdded:
		return decodeAs[domain.MemberAddedData](raw)
	case domain.EventMemberRemoved:
		return decodeAs[domain.MemberRemovedData](raw)
	case domain.EventMemberUpdated:
		return decodeAs[domain.MemberUpdatedData](raw)
	case domain.EventRoleCreated:
		return decodeAs[domain.RoleCreatedData](raw)
	case domain.EventRoleUpdated:
		return decodeAs[domain.RoleUpdatedData](raw)
	case domain.EventRoleDeleted:
		return decodeAs[domain.RoleDeletedData](raw)
	case domain.EventGuildAvailable:
		return decodeAs[domain.GuildAvailableData](raw)
	case domain.EventGuildRemoved:
		return decodeAs[domain.GuildRemovedData](raw)
	case domain.EventShardReady:
		return decodeAs[domain.ShardReadyData](raw)
	case domain.EventShardDisconnected:
		return decodeAs[domain.ShardDisconnectedData](raw)
	}
	return nil, domain.ErrUnknownEventType.WithDetails(typ.String())
}

func decodeAs[T domain.Payload](raw json.RawMessage) (domain.Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func guildOf(p domain.Payload) domain.GuildID {
	switch d := p.(type) {
	case domain.MemberAddedData:
		return d.GuildID
	case domain.MemberRemovedData:
		return d.GuildID
	case domain.MemberUpdatedData:
		return d.GuildID
	case domain.RoleCreatedData:
		return d.GuildID
	case domain.RoleUpdatedData:
		return d.GuildID
	case domain.RoleDeletedData:
		return d.GuildID
	case domain.GuildAvailableData:
		return d.GuildID
	case domain.GuildRemovedData:
		return d.GuildID
	}
	return ""
}
