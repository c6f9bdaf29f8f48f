// Package stats forwards tagged counts to an external statistics backend.
//
// Tags may carry high-cardinality values such as guild ids, which is why
// these counts never go to the Prometheus store.
package stats

import (
	"context"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Well-known stat names.
const (
	GuildMembers = "guild_members"
	GuildJoins   = "guild_joins"
	GuildLeaves  = "guild_leaves"
)

// TagGuildID is the tag key carrying a guild id.
const TagGuildID = "guildId"

// Tag is a key/value pair attached to a count.
type Tag struct {
	Key   string
	Value string
}

// T builds a tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// Sink receives tagged counts. Implementations must be safe for
// concurrent use and must not block.
type Sink interface {
	Count(ctx context.Context, name string, delta int64, tags ...Tag)
}

// Nop discards every count.
type Nop struct{}

// Count implements Sink.
func (Nop) Count(context.Context, string, int64, ...Tag) {}

// OTelSink records counts on OpenTelemetry Int64UpDownCounters, one per name.
type OTelSink struct {
	meter metric.Meter

	mu       sync.RWMutex
	counters map[string]metric.Int64UpDownCounter
	onError  func(name string, err error)
}

// NewOTelSink creates a sink on meter. onError, if non-nil, is called when
// an instrument cannot be created.
func NewOTelSink(meter metric.Meter, onError func(name string, err error)) *OTelSink {
	return &OTelSink{
		meter:    meter,
		counters: make(map[string]metric.Int64UpDownCounter),
		onError:  onError,
	}
}

// Count implements Sink.
func (s *OTelSink) Count(ctx context.Context, name string, delta int64, tags ...Tag) {
	c, err := s.instrument(name)
	if err != nil {
		if s.onError != nil {
			s.onError(name, err)
		}
		return
	}

	if len(tags) == 0 {
		c.Add(ctx, delta)
		return
	}
	attrs := make([]attribute.KeyValue, len(tags))
	for i, t := range tags {
		attrs[i] = attribute.String(t.Key, t.Value)
	}
	c.Add(ctx, delta, metric.WithAttributes(attrs...))
}

func (s *OTelSink) instrument(name string) (metric.Int64UpDownCounter, error) {
	s.mu.RLock()
	c, ok := s.counters[name]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[name]; ok {
		return c, nil
	}
	c, err := s.meter.Int64UpDownCounter(name)
	if err != nil {
		return nil, err
	}
	s.counters[name] = c
	return c, nil
}

// Point is one collected data point.
type Point struct {
	Name  string            `json:"name"`
	Tags  map[string]string `json:"tags,omitempty"`
	Value int64             `json:"value"`
}

// Collector reads back the counts recorded through a meter provider.
type Collector struct {
	reader *sdkmetric.ManualReader
}

// NewProvider returns a meter provider whose counts can be read with the
// returned Collector. Additional readers, such as a periodic exporter,
// may be passed in.
func NewProvider(readers ...sdkmetric.Reader) (*sdkmetric.MeterProvider, *Collector) {
	manual := sdkmetric.NewManualReader()
	opts := []sdkmetric.Option{sdkmetric.WithReader(manual)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	return sdkmetric.NewMeterProvider(opts...), &Collector{reader: manual}
}

// Collect returns every int64 sum data point, sorted by name then tags.
func (c *Collector) Collect(ctx context.Context) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var out []Point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				tags := make(map[string]string, dp.Attributes.Len())
				for _, kv := range dp.Attributes.ToSlice() {
					tags[string(kv.Key)] = kv.Value.Emit()
				}
				out = append(out, Point{Name: m.Name, Tags: tags, Value: dp.Value})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return tagKey(out[i].Tags) < tagKey(out[j].Tags)
	})
	return out, nil
}

// Value returns the value of the data point with name and exactly tags.
func (c *Collector) Value(ctx context.Context, name string, tags ...Tag) (int64, bool, error) {
	points, err := c.Collect(ctx)
	if err != nil {
		return 0, false, err
	}
	want := make(map[string]string, len(tags))
	for _, t := range tags {
		want[t.Key] = t.Value
	}
	key := tagKey(want)
	for _, p := range points {
		if p.Name == name && tagKey(p.Tags) == key {
			return p.Value, true, nil
		}
	}
	return 0, false, nil
}

func tagKey(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b []byte
	for _, k := range keys {
		b = append(b, k...)
		b = append(b, '=')
		b = append(b, tags[k]...)
		b = append(b, 0)
	}
	return string(b)
}
