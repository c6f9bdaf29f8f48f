package rolestore

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// RoleRepository is the persistence boundary for role tables.
//
// Upserts and deletes are idempotent: repeating one has no further effect.
type RoleRepository interface {
	UpsertRole(ctx context.Context, guildID domain.GuildID, role domain.Role) error
	DeleteRole(ctx context.Context, guildID domain.GuildID, roleID domain.RoleID) error
	GetRole(ctx context.Context, guildID domain.GuildID, roleID domain.RoleID) (domain.Role, error)
	ListRoles(ctx context.Context, guildID domain.GuildID) ([]domain.Role, error)
	DeleteGuild(ctx context.Context, guildID domain.GuildID) error
	// Scan visits every stored role, grouped by guild.
	Scan(ctx context.Context, fn func(guildID domain.GuildID, role domain.Role) error) error
	Close() error
}

// MemoryStore is a RoleRepository kept in process memory.
// Used when no storage directory is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	guilds map[domain.GuildID]map[domain.RoleID]domain.Role
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{guilds: make(map[domain.GuildID]map[domain.RoleID]domain.Role)}
}

// UpsertRole implements RoleRepository.
func (s *MemoryStore) UpsertRole(_ context.Context, guildID domain.GuildID, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles, ok := s.guilds[guildID]
	if !ok {
		roles = make(map[domain.RoleID]domain.Role)
		s.guilds[guildID] = roles
	}
	roles[role.ID] = role
	return nil
}

// DeleteRole implements RoleRepository.
func (s *MemoryStore) DeleteRole(_ context.Context, guildID domain.GuildID, roleID domain.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if roles, ok := s.guilds[guildID]; ok {
		delete(roles, roleID)
		if len(roles) == 0 {
			delete(s.guilds, guildID)
		}
	}
	return nil
}

// GetRole implements RoleRepository.
func (s *MemoryStore) GetRole(_ context.Context, guildID domain.GuildID, roleID domain.RoleID) (domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.guilds[guildID][roleID]
	if !ok {
		return domain.Role{}, domain.ErrRoleNotFound.WithDetailsf("%s/%s", guildID, roleID)
	}
	return role, nil
}

// ListRoles implements RoleRepository.
func (s *MemoryStore) ListRoles(_ context.Context, guildID domain.GuildID) ([]domain.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRoles(s.guilds[guildID]), nil
}

// DeleteGuild implements RoleRepository.
func (s *MemoryStore) DeleteGuild(_ context.Context, guildID domain.GuildID) error {
	s.mu.Lock()
	delete(s.guilds, guildID)
	s.mu.Unlock()
	return nil
}

// Scan implements RoleRepository.
func (s *MemoryStore) Scan(_ context.Context, fn func(domain.GuildID, domain.Role) error) error {
	s.mu.RLock()
	ids := make([]domain.GuildID, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	snapshot := make(map[domain.GuildID][]domain.Role, len(ids))
	for _, id := range ids {
		snapshot[id] = sortedRoles(s.guilds[id])
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		for _, r := range snapshot[id] {
			if err := fn(id, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close implements RoleRepository.
func (s *MemoryStore) Close() error { return nil }

func sortedRoles(m map[domain.RoleID]domain.Role) []domain.Role {
	out := make([]domain.Role, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
