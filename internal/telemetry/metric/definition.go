package metric

import (
	"sync"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// Kind is the type of a metric.
type Kind int

const (
	// KindCounter is a cumulative metric that only increases.
	KindCounter Kind = iota + 1
	// KindGauge is a metric that can go up and down.
	KindGauge
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// DefaultMaxSeries caps the distinct label tuples of a metric whose
// definition does not set MaxSeries.
const DefaultMaxSeries = 1024

// Definition declares a metric.
type Definition struct {
	Name      string
	Help      string
	Labels    []string // ordered label names
	Kind      Kind
	MaxSeries int // cap on distinct label tuples; 0 means DefaultMaxSeries
}

func (d Definition) validate() error {
	if d.Name == "" {
		return domain.ErrInvalidMetric.WithDetails("name is required")
	}
	if d.Help == "" {
		return domain.ErrInvalidMetric.WithDetailsf("%s: help is required", d.Name)
	}
	if d.Kind != KindCounter && d.Kind != KindGauge {
		return domain.ErrInvalidMetric.WithDetailsf("%s: unknown kind %d", d.Name, d.Kind)
	}
	seen := make(map[string]bool, len(d.Labels))
	for _, l := range d.Labels {
		if l == "" || seen[l] {
			return domain.ErrInvalidMetric.WithDetailsf("%s: empty or repeated label %q", d.Name, l)
		}
		seen[l] = true
	}
	if d.MaxSeries < 0 {
		return domain.ErrInvalidMetric.WithDetailsf("%s: negative max series", d.Name)
	}
	return nil
}

func (d Definition) maxSeries() int {
	if d.MaxSeries == 0 {
		return DefaultMaxSeries
	}
	return d.MaxSeries
}

func (d Definition) clone() Definition {
	d.Labels = append([]string(nil), d.Labels...)
	return d
}

// Registry is the table of metric definitions.
//
// Definitions are added at startup. Once a Store has been built from the
// registry it is frozen and rejects further registrations.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Registering a name twice is a configuration
// error and returns ErrDuplicateMetric.
func (r *Registry) Register(def Definition) error {
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen.WithDetails(def.Name)
	}
	if _, exists := r.defs[def.Name]; exists {
		return domain.ErrDuplicateMetric.WithDetails(def.Name)
	}
	r.defs[def.Name] = def.clone()
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister registers every definition and panics on the first error.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, false
	}
	return def.clone(), true
}

// Definitions returns every definition in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].clone())
	}
	return out
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
