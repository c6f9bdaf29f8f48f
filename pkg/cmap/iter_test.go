package cmap

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRange(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	collected := make(map[string]int)
	m.Range(func(key string, value int) bool {
		collected[key] = value
		return true
	})

	if len(collected) != 3 {
		t.Errorf("Range collected %d items, want 3", len(collected))
	}
	for k, v := range map[string]int{"a": 1, "b": 2, "c": 3} {
		if collected[k] != v {
			t.Errorf("collected[%s] = %d, want %d", k, collected[k], v)
		}
	}
}

func TestRangeEarlyStop(t *testing.T) {
	m := New[string, int]()
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		m.Set(k, 1)
	}

	count := 0
	m.Range(func(string, int) bool {
		count++
		return count < 5
	})

	if count != 5 {
		t.Errorf("Range stopped at %d, want 5", count)
	}
}

func TestKeys(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("z", 3)

	keys := m.Keys()
	sort.Strings(keys)
	expected := []string{"x", "y", "z"}
	if len(keys) != len(expected) {
		t.Fatalf("Keys() length = %d, want 3", len(keys))
	}
	for i, k := range keys {
		if k != expected[i] {
			t.Errorf("keys[%d] = %q, want %q", i, k, expected[i])
		}
	}
}

func TestGetOrCreate(t *testing.T) {
	m := New[string, *int]()
	calls := 0
	newFn := func() *int {
		calls++
		v := 100
		return &v
	}

	first, existed := m.GetOrCreate("key1", newFn)
	if existed || *first != 100 {
		t.Errorf("GetOrCreate(new) = (%d, %v), want (100, false)", *first, existed)
	}

	second, existed := m.GetOrCreate("key1", newFn)
	if !existed || second != first {
		t.Error("GetOrCreate(existing) should return the stored pointer")
	}
	if calls != 1 {
		t.Errorf("constructor called %d times, want 1", calls)
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	m := New[string, *atomic.Int64]()
	var created atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := m.GetOrCreate("shared", func() *atomic.Int64 {
				created.Add(1)
				return new(atomic.Int64)
			})
			v.Add(1)
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("constructor ran %d times, want 1", created.Load())
	}
	v, _ := m.Get("shared")
	if v.Load() != 32 {
		t.Errorf("shared value = %d, want 32", v.Load())
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("key1", 100)

	val, ok := m.Pop("key1")
	if !ok || val != 100 {
		t.Errorf("Pop(existing) = (%d, %v), want (100, true)", val, ok)
	}
	if m.Has("key1") {
		t.Error("key1 should not exist after Pop")
	}

	if _, ok := m.Pop("key1"); ok {
		t.Error("Pop(missing) should return false")
	}
}
