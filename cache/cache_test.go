package cache

import (
	"math"
	"testing"
)

func TestCacheInit(t *testing.T) {
	cache := NewCache(1 << 20)
	n, _ := cache.Stats()
	if n != 0 {
		t.Errorf("size = %v, want 0", n)
	}
}

func TestSetInsertsValue(t *testing.T) {
	cache := NewCache(1 << 20)
	data := []float64{1.1, -2.2, 3.3, math.Inf(-1)}
	var key uint64 = 33
	cache.Set(key, data)

	v, ok := cache.Get(key)
	if !ok {
		t.Fatalf("Cache returned not ok")
	}
	if len(v) != len(data) {
		t.Fatalf("len = %d, want %d", len(v), len(data))
	}
	for i, f := range v {
		if f != data[i] {
			t.Errorf("Cache has incorrect value: %f != %f", data[i], v[i])
		}
	}

	// The returned slice must not alias internal buffers.
	v[0] = 99
	w, _ := cache.Get(key)
	if w[0] != 1.1 {
		t.Errorf("Cache value was modified through returned slice: %f", w[0])
	}
}

func TestGetMissAndDelete(t *testing.T) {
	cache := NewCache(1 << 20)
	if _, ok := cache.Get(7); ok {
		t.Fatal("expected miss on empty cache")
	}
	cache.Set(7, []float64{1})
	cache.Delete(7)
	if _, ok := cache.Get(7); ok {
		t.Fatal("expected miss after delete")
	}
	cache.Set(8, []float64{2})
	cache.Clear()
	if _, ok := cache.Get(8); ok {
		t.Fatal("expected miss after clear")
	}
	if n, _ := cache.Stats(); n != 0 {
		t.Fatalf("entries = %d after clear", n)
	}
}

func TestDefaultSize(t *testing.T) {
	cache := NewCache(0)
	cache.Set(1, []float64{4})
	if v, ok := cache.Get(1); !ok || v[0] != 4 {
		t.Fatalf("got %v %v", v, ok)
	}
}
