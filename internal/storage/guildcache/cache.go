package guildcache

import (
	"sort"
	"sync"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/pkg/cmap"
)

// guildState is the derived sub-state of one guild.
type guildState struct {
	mu    sync.RWMutex
	roles map[domain.RoleID]domain.Role // nil until the first role event
	self  *domain.Member

	available bool  // a backfill has been applied
	members   int64 // approximate member count
}

func newGuildState() *guildState {
	return &guildState{}
}

// Cache maps guild IDs to their derived sub-state.
type Cache struct {
	guilds *cmap.Map[domain.GuildID, *guildState]
}

// Option configures the Cache.
type Option func(*config)

type config struct {
	shards int
}

// WithShardCount sets the number of map shards (power of two).
func WithShardCount(n int) Option {
	return func(c *config) {
		c.shards = n
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	cfg := config{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{
		guilds: cmap.NewWithShards[domain.GuildID, *guildState](cfg.shards),
	}
}

// Stripes returns the number of lock stripes of the guild table.
func (c *Cache) Stripes() int {
	return c.guilds.ShardCount()
}

func (c *Cache) state(guildID domain.GuildID) *guildState {
	st, _ := c.guilds.GetOrCreate(guildID, newGuildState)
	return st
}

// UpsertRole inserts or overwrites a role, creating the guild's role table
// when absent. The table key is always role.ID.
func (c *Cache) UpsertRole(guildID domain.GuildID, role domain.Role) {
	st := c.state(guildID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.roles == nil {
		st.roles = make(map[domain.RoleID]domain.Role)
	}
	st.roles[role.ID] = role
}

// RemoveRole deletes a role. It reports whether the role was present.
func (c *Cache) RemoveRole(guildID domain.GuildID, roleID domain.RoleID) bool {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.roles[roleID]; !ok {
		return false
	}
	delete(st.roles, roleID)
	return true
}

// ReplaceRoles swaps the guild's whole role table, used by the bulk
// backfill delivered when a guild becomes available.
func (c *Cache) ReplaceRoles(guildID domain.GuildID, roles []domain.Role) {
	table := make(map[domain.RoleID]domain.Role, len(roles))
	for _, r := range roles {
		table[r.ID] = r
	}

	st := c.state(guildID)
	st.mu.Lock()
	st.roles = table
	st.mu.Unlock()
}

// SetSelfMember overwrites the bot's own membership record for a guild.
//
// The caller is responsible for checking that the member is the bot itself.
func (c *Cache) SetSelfMember(guildID domain.GuildID, member *domain.Member) {
	st := c.state(guildID)
	m := member.Clone()

	st.mu.Lock()
	st.self = m
	st.mu.Unlock()
}

// MarkAvailable records the member count delivered by a backfill. It
// returns the previously known count and whether the guild had already
// been backfilled, so replays after a reconnect can be applied as deltas.
func (c *Cache) MarkAvailable(guildID domain.GuildID, memberCount int64) (prev int64, wasAvailable bool) {
	st := c.state(guildID)
	st.mu.Lock()
	defer st.mu.Unlock()

	prev, wasAvailable = st.members, st.available
	st.members = memberCount
	st.available = true
	return prev, wasAvailable
}

// Available reports whether a backfill has been applied to the guild.
func (c *Cache) Available(guildID domain.GuildID) bool {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.available
}

// AdjustMemberCount adds delta to the guild's member count and returns the
// new value. Counts may go negative when leaves arrive before the backfill.
func (c *Cache) AdjustMemberCount(guildID domain.GuildID, delta int64) int64 {
	st := c.state(guildID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.members += delta
	return st.members
}

// MemberCount returns the guild's approximate member count.
func (c *Cache) MemberCount(guildID domain.GuildID) (int64, bool) {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return 0, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.members, true
}

// Roles returns a copy of the guild's role table.
func (c *Cache) Roles(guildID domain.GuildID) (map[domain.RoleID]domain.Role, bool) {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.roles == nil {
		return nil, false
	}
	out := make(map[domain.RoleID]domain.Role, len(st.roles))
	for id, r := range st.roles {
		out[id] = r
	}
	return out, true
}

// SortedRoles returns the guild's roles ordered by ID.
func (c *Cache) SortedRoles(guildID domain.GuildID) ([]domain.Role, bool) {
	table, ok := c.Roles(guildID)
	if !ok {
		return nil, false
	}
	roles := make([]domain.Role, 0, len(table))
	for _, r := range table {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, true
}

// Role returns one role of a guild.
func (c *Cache) Role(guildID domain.GuildID, roleID domain.RoleID) (domain.Role, bool) {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return domain.Role{}, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	r, ok := st.roles[roleID]
	return r, ok
}

// SelfMember returns a copy of the bot's own membership record for a guild.
func (c *Cache) SelfMember(guildID domain.GuildID) (*domain.Member, bool) {
	st, ok := c.guilds.Get(guildID)
	if !ok {
		return nil, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	if st.self == nil {
		return nil, false
	}
	return st.self.Clone(), true
}

// RemoveGuild drops every piece of state held for a guild.
func (c *Cache) RemoveGuild(guildID domain.GuildID) bool {
	_, ok := c.guilds.Pop(guildID)
	return ok
}

// HasGuild reports whether any state is held for a guild.
func (c *Cache) HasGuild(guildID domain.GuildID) bool {
	return c.guilds.Has(guildID)
}

// Len returns the number of cached guilds.
func (c *Cache) Len() int {
	return c.guilds.Count()
}

// Guilds returns the IDs of every cached guild.
func (c *Cache) Guilds() []domain.GuildID {
	return c.guilds.Keys()
}

// Stats summarises the cache contents.
type Stats struct {
	Guilds      int `json:"guilds"`
	Roles       int `json:"roles"`
	SelfMembers int `json:"self_members"`
}

// Stats walks the cache and counts its entries.
func (c *Cache) Stats() Stats {
	var s Stats
	c.guilds.Range(func(_ domain.GuildID, st *guildState) bool {
		st.mu.RLock()
		s.Guilds++
		s.Roles += len(st.roles)
		if st.self != nil {
			s.SelfMembers++
		}
		st.mu.RUnlock()
		return true
	})
	return s
}
