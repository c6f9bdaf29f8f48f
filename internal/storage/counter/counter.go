// Package counter keeps approximate aggregate counters such as the number of
// known users.
//
// Values are NOT authoritative. They are running totals of signed deltas
// applied as events arrive, and drift from ground truth whenever events are
// lost, duplicated or replayed after a reconnect. Negative values are
// permitted and mean either a real net-negative change or transient drift.
// Readers must present them as approximations.
//
// Adjust is a single atomic add once a counter exists; shards call it
// concurrently without any other coordination.
package counter

import (
	"sort"
	"sync/atomic"

	"github.com/yndnr/guildsync/pkg/cmap"
)

// Well-known counter names.
const (
	// Users is the approximate number of users across every cached guild.
	Users = "users"
	// Guilds is the approximate number of guilds the bot is in.
	Guilds = "guilds"
)

// Store holds named approximate counters.
type Store struct {
	counters *cmap.Map[string, *atomic.Int64]
}

// New creates a store. Names listed in preset exist (at zero) from the start
// so they show up in snapshots before their first adjustment.
func New(preset ...string) *Store {
	s := &Store{counters: cmap.NewWithShards[string, *atomic.Int64](4)}
	for _, name := range preset {
		s.counter(name)
	}
	return s
}

func (s *Store) counter(name string) *atomic.Int64 {
	c, _ := s.counters.GetOrCreate(name, func() *atomic.Int64 { return new(atomic.Int64) })
	return c
}

// Adjust atomically adds delta to the named counter and returns the new
// value. The result is not clamped.
func (s *Store) Adjust(name string, delta int64) int64 {
	return s.counter(name).Add(delta)
}

// Read returns the current value of a counter, zero if it was never adjusted.
func (s *Store) Read(name string) int64 {
	c, ok := s.counters.Get(name)
	if !ok {
		return 0
	}
	return c.Load()
}

// Names returns the sorted names of every known counter.
func (s *Store) Names() []string {
	names := s.counters.Keys()
	sort.Strings(names)
	return names
}

// Snapshot returns the current value of every counter.
//
// Counters are read one by one, so the snapshot is not a consistent cut.
func (s *Store) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	s.counters.Range(func(name string, c *atomic.Int64) bool {
		out[name] = c.Load()
		return true
	})
	return out
}
