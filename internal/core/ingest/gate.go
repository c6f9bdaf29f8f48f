package ingest

import (
	"sync/atomic"
	"time"
)

// GateState is the readiness of one shard.
type GateState int32

const (
	// Hydrating means the initial synchronization is still in progress.
	Hydrating GateState = iota
	// Ready means the shard finished its initial synchronization.
	Ready
)

// String returns the state name.
func (s GateState) String() string {
	if s == Ready {
		return "ready"
	}
	return "hydrating"
}

// Gate tracks the readiness of one shard. Reads are lock-free.
type Gate struct {
	state   atomic.Int32
	readyAt atomic.Int64 // unix nanoseconds, 0 when hydrating
}

// State returns the current state.
func (g *Gate) State() GateState {
	return GateState(g.state.Load())
}

// Ready reports whether the shard is ready.
func (g *Gate) Ready() bool {
	return g.State() == Ready
}

// MarkReady moves the gate to Ready. It reports whether the state changed.
func (g *Gate) MarkReady() bool {
	if !g.state.CompareAndSwap(int32(Hydrating), int32(Ready)) {
		return false
	}
	g.readyAt.Store(time.Now().UnixNano())
	return true
}

// Reset moves the gate back to Hydrating. It reports whether the state changed.
func (g *Gate) Reset() bool {
	if !g.state.CompareAndSwap(int32(Ready), int32(Hydrating)) {
		return false
	}
	g.readyAt.Store(0)
	return true
}

// ReadySince returns when the gate last became ready.
func (g *Gate) ReadySince() (time.Time, bool) {
	ns := g.readyAt.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}
