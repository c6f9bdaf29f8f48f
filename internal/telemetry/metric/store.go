package metric

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/yndnr/guildsync/internal/core/domain"
)

// DefaultNamespace prefixes every exported metric name.
const DefaultNamespace = "guildsync"

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	namespace string
	runtime   bool
}

// WithNamespace overrides the metric name prefix.
func WithNamespace(ns string) Option {
	return func(o *storeOptions) { o.namespace = ns }
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(o *storeOptions) { o.runtime = true }
}

// Sample is one series value captured by Snapshot.
type Sample struct {
	Name   string // short name, without namespace
	Labels Tuple
	Value  float64
}

type series struct {
	def     Definition
	counter *prometheus.CounterVec
	gauge   *prometheus.GaugeVec

	seen  sync.Map // tuple key -> struct{}
	mu    sync.Mutex
	count atomic.Int64 // written under mu
}

// Store holds the live Prometheus series for every registered definition.
type Store struct {
	namespace string
	registry  *prometheus.Registry
	series    map[string]*series
	byFQName  map[string]*series
}

// NewStore freezes reg and creates a Prometheus vector for each definition.
func NewStore(reg *Registry, opts ...Option) (*Store, error) {
	o := storeOptions{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(&o)
	}

	reg.Freeze()

	s := &Store{
		namespace: o.namespace,
		registry:  prometheus.NewRegistry(),
		series:    make(map[string]*series),
		byFQName:  make(map[string]*series),
	}

	if o.runtime {
		if err := s.registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, err
		}
		if err := s.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	for _, def := range reg.Definitions() {
		sr := &series{def: def}
		var c prometheus.Collector
		switch def.Kind {
		case KindCounter:
			sr.counter = prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: o.namespace,
				Name:      def.Name,
				Help:      def.Help,
			}, def.Labels)
			c = sr.counter
		case KindGauge:
			sr.gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: o.namespace,
				Name:      def.Name,
				Help:      def.Help,
			}, def.Labels)
			c = sr.gauge
		}
		if err := s.registry.Register(c); err != nil {
			return nil, domain.ErrInvalidMetric.WithDetails(def.Name).WithCause(err)
		}
		s.series[def.Name] = sr
		s.byFQName[prometheus.BuildFQName(o.namespace, "", def.Name)] = sr
	}

	return s, nil
}

// Increment adds amount to the series identified by name and tuple.
// Counters reject negative amounts; gauges accept any amount.
func (s *Store) Increment(name string, tuple Tuple, amount float64) error {
	sr, err := s.resolve(name, tuple)
	if err != nil {
		return err
	}
	if sr.counter != nil && amount < 0 {
		return domain.ErrNegativeIncrement.WithDetailsf("%s%s by %g", name, tuple, amount)
	}
	if err := sr.admit(tuple); err != nil {
		return err
	}

	vals := tuple.Values()
	if sr.counter != nil {
		sr.counter.WithLabelValues(vals...).Add(amount)
	} else {
		sr.gauge.WithLabelValues(vals...).Add(amount)
	}
	return nil
}

// Inc increments the series by one.
func (s *Store) Inc(name string, tuple Tuple) error {
	return s.Increment(name, tuple, 1)
}

// Set assigns value to a gauge series.
func (s *Store) Set(name string, tuple Tuple, value float64) error {
	sr, err := s.resolve(name, tuple)
	if err != nil {
		return err
	}
	if sr.gauge == nil {
		return domain.ErrKindMismatch.WithDetailsf("set on %s %s", sr.def.Kind, name)
	}
	if err := sr.admit(tuple); err != nil {
		return err
	}
	sr.gauge.WithLabelValues(tuple.Values()...).Set(value)
	return nil
}

// Value returns the current value of a series. ok is false when the
// series has never been written.
func (s *Store) Value(name string, tuple Tuple) (value float64, ok bool, err error) {
	sr, err := s.resolve(name, tuple)
	if err != nil {
		return 0, false, err
	}
	if _, seen := sr.seen.Load(tuple.key()); !seen {
		return 0, false, nil
	}

	var m dto.Metric
	vals := tuple.Values()
	if sr.counter != nil {
		if err := sr.counter.WithLabelValues(vals...).Write(&m); err != nil {
			return 0, false, err
		}
		return m.GetCounter().GetValue(), true, nil
	}
	if err := sr.gauge.WithLabelValues(vals...).Write(&m); err != nil {
		return 0, false, err
	}
	return m.GetGauge().GetValue(), true, nil
}

// SeriesCount returns the number of distinct label tuples written for name.
func (s *Store) SeriesCount(name string) int {
	sr, ok := s.series[name]
	if !ok {
		return 0
	}
	return int(sr.count.Load())
}

// Snapshot returns every live series of the registered definitions,
// sorted by name then label values.
func (s *Store) Snapshot() ([]Sample, error) {
	families, err := s.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		sr, ok := s.byFQName[mf.GetName()]
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			byName := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				byName[lp.GetName()] = lp.GetValue()
			}
			tuple := make(Tuple, len(sr.def.Labels))
			for i, name := range sr.def.Labels {
				tuple[i] = Label{Name: name, Value: byName[name]}
			}

			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			out = append(out, Sample{Name: sr.def.Name, Labels: tuple, Value: v})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels.key() < out[j].Labels.key()
	})
	return out, nil
}

// Handler returns an HTTP handler serving the Prometheus text exposition.
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Registerer exposes the underlying registry for additional collectors.
func (s *Store) Registerer() prometheus.Registerer {
	return s.registry
}

// Gatherer exposes the underlying registry for scraping.
func (s *Store) Gatherer() prometheus.Gatherer {
	return s.registry
}

// Namespace returns the metric name prefix.
func (s *Store) Namespace() string {
	return s.namespace
}

func (s *Store) resolve(name string, tuple Tuple) (*series, error) {
	sr, ok := s.series[name]
	if !ok {
		return nil, domain.ErrUnknownMetric.WithDetails(name)
	}
	if !tuple.matches(sr.def.Labels) {
		return nil, domain.ErrLabelMismatch.WithDetailsf("%s%s, want labels %v", name, tuple, sr.def.Labels)
	}
	for _, l := range tuple {
		if !utf8.ValidString(l.Value) {
			return nil, domain.ErrInvalidLabelValue.WithDetailsf("%s: label %s = %q", name, l.Name, l.Value)
		}
	}
	return sr, nil
}

// admit records tuple as a live series, enforcing the series cap.
// A tuple is only published to seen once it holds a slot.
func (sr *series) admit(tuple Tuple) error {
	key := tuple.key()
	if _, ok := sr.seen.Load(key); ok {
		return nil
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	if _, ok := sr.seen.Load(key); ok {
		return nil
	}
	if sr.count.Load() >= int64(sr.def.maxSeries()) {
		return domain.ErrCardinalityExceeded.WithDetailsf("%s%s: limit %d", sr.def.Name, tuple, sr.def.maxSeries())
	}
	sr.seen.Store(key, struct{}{})
	sr.count.Add(1)
	return nil
}
