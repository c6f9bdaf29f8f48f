package ingest

import (
	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/storage/counter"
	"github.com/yndnr/guildsync/internal/storage/guildcache"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
	"github.com/yndnr/guildsync/internal/telemetry/metric"
	"github.com/yndnr/guildsync/internal/telemetry/report"
	"github.com/yndnr/guildsync/internal/telemetry/stats"
)

// RoleWriter receives role changes for asynchronous persistence.
// Calls must not block.
type RoleWriter interface {
	UpsertRole(guildID domain.GuildID, role domain.Role) error
	DeleteRole(guildID domain.GuildID, roleID domain.RoleID) error
	DeleteGuild(guildID domain.GuildID) error
}

// State is the session context shared by every handler.
type State struct {
	SelfID    domain.UserID
	Cache     *guildcache.Cache
	Counters  *counter.Store
	Metrics   *metric.Store
	Stats     stats.Sink
	Persister RoleWriter
	Reporter  report.Reporter
	Logger    logger.Logger
}

func (s *State) withDefaults() *State {
	c := *s
	if c.Cache == nil {
		c.Cache = guildcache.New()
	}
	if c.Counters == nil {
		c.Counters = counter.New(counter.Users, counter.Guilds)
	}
	if c.Stats == nil {
		c.Stats = stats.Nop{}
	}
	if c.Persister == nil {
		c.Persister = discardWriter{}
	}
	if c.Reporter == nil {
		c.Reporter = report.Nop{}
	}
	if c.Logger == nil {
		c.Logger = logger.Default()
	}
	return &c
}

type discardWriter struct{}

func (discardWriter) UpsertRole(domain.GuildID, domain.Role) error   { return nil }
func (discardWriter) DeleteRole(domain.GuildID, domain.RoleID) error { return nil }
func (discardWriter) DeleteGuild(domain.GuildID) error               { return nil }
