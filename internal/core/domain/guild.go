package domain

import "time"

// ShardID identifies one gateway connection partition.
//
// A guild is served by exactly one shard for the lifetime of a connection
// session, so every event for a given guild arrives through the same shard.
type ShardID int

// GuildID identifies a guild.
type GuildID string

// RoleID identifies a role within a guild.
type RoleID string

// UserID identifies a user.
type UserID string

// Role is the cached view of a guild role.
type Role struct {
	ID          RoleID `json:"id"`
	Name        string `json:"name"`
	Permissions string `json:"permissions"` // decimal permission bitstring, as delivered
}

// Validate checks the role carries an identifier.
func (r Role) Validate() error {
	if r.ID == "" {
		return ErrMalformedEnvelope.WithDetails("role.id is required")
	}
	return nil
}

// Member is a guild membership record.
type Member struct {
	UserID   UserID    `json:"user_id"`
	Nick     string    `json:"nick,omitempty"`
	Roles    []RoleID  `json:"roles,omitempty"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

// Clone returns a deep copy of the member.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	if m.Roles != nil {
		c.Roles = append([]RoleID(nil), m.Roles...)
	}
	return &c
}
