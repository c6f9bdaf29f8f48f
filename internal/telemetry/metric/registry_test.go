package metric

import (
	"errors"
	"testing"

	"github.com/yndnr/guildsync/internal/core/domain"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	def := Definition{Name: "events_total", Help: "events", Labels: []string{"shard"}, Kind: KindCounter}

	if err := reg.Register(def); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := reg.Lookup("events_total")
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if got.Name != def.Name || got.Kind != KindCounter || len(got.Labels) != 1 {
		t.Errorf("Lookup() = %+v", got)
	}

	// Lookup returns a copy.
	got.Labels[0] = "mutated"
	again, _ := reg.Lookup("events_total")
	if again.Labels[0] != "shard" {
		t.Error("Lookup() exposed internal label slice")
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	def := Definition{Name: "x", Help: "x", Kind: KindGauge}

	if err := reg.Register(def); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := reg.Register(def)
	if !errors.Is(err, domain.ErrDuplicateMetric) {
		t.Errorf("Register() duplicate error = %v, want ErrDuplicateMetric", err)
	}
	if n := len(reg.Definitions()); n != 1 {
		t.Errorf("Definitions() len = %d, want 1", n)
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustRegister() did not panic on duplicate")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, domain.ErrDuplicateMetric) {
			t.Errorf("panic value = %v, want ErrDuplicateMetric", r)
		}
	}()
	def := Definition{Name: "x", Help: "x", Kind: KindCounter}
	reg.MustRegister(def, def)
}

func TestRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"empty name", Definition{Help: "h", Kind: KindCounter}},
		{"empty help", Definition{Name: "n", Kind: KindCounter}},
		{"bad kind", Definition{Name: "n", Help: "h"}},
		{"repeated label", Definition{Name: "n", Help: "h", Kind: KindCounter, Labels: []string{"a", "a"}}},
		{"empty label", Definition{Name: "n", Help: "h", Kind: KindCounter, Labels: []string{""}}},
		{"negative cap", Definition{Name: "n", Help: "h", Kind: KindCounter, MaxSeries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.def)
			if !errors.Is(err, domain.ErrInvalidMetric) {
				t.Errorf("Register() error = %v, want ErrInvalidMetric", err)
			}
		})
	}
}

func TestRegistry_Frozen(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Definition{Name: "a", Help: "a", Kind: KindCounter})

	if _, err := NewStore(reg); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if !reg.Frozen() {
		t.Fatal("registry not frozen after NewStore")
	}

	err := reg.Register(Definition{Name: "b", Help: "b", Kind: KindCounter})
	if !errors.Is(err, domain.ErrRegistryFrozen) {
		t.Errorf("Register() after freeze error = %v, want ErrRegistryFrozen", err)
	}
}

func TestRegistry_DefinitionsOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		reg.MustRegister(Definition{Name: name, Help: name, Kind: KindGauge})
	}
	defs := reg.Definitions()
	want := []string{"c", "a", "b"}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Errorf("Definitions()[%d] = %s, want %s", i, d.Name, want[i])
		}
	}
}

func TestStandard(t *testing.T) {
	reg, err := NewStandardRegistry()
	if err != nil {
		t.Fatalf("NewStandardRegistry() error = %v", err)
	}
	if len(reg.Definitions()) != len(Standard()) {
		t.Errorf("registered %d definitions, want %d", len(reg.Definitions()), len(Standard()))
	}
	def, ok := reg.Lookup(EventsTotal)
	if !ok {
		t.Fatal("events_total not registered")
	}
	if len(def.Labels) != 2 || def.Labels[0] != LabelShard || def.Labels[1] != LabelType {
		t.Errorf("events_total labels = %v", def.Labels)
	}
}

func TestTuple(t *testing.T) {
	tuple := L("shard", "0", "type", "GUILD_MEMBER_ADD", "dangling")
	if len(tuple) != 2 {
		t.Fatalf("L() len = %d, want 2", len(tuple))
	}
	if got := tuple.String(); got != `{shard="0",type="GUILD_MEMBER_ADD"}` {
		t.Errorf("String() = %s", got)
	}
	if !tuple.matches([]string{"shard", "type"}) {
		t.Error("matches() = false for declared order")
	}
	if tuple.matches([]string{"type", "shard"}) {
		t.Error("matches() = true for swapped order")
	}
	if ShardValue(domain.ShardID(12)) != "12" {
		t.Errorf("ShardValue(12) = %s", ShardValue(12))
	}
}
