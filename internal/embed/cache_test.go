package embed

import (
	"context"
	"testing"
)

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache(100)
	ctx := context.Background()

	key := "some-key"
	embedding := []float32{0.1, 0.2, 0.3}

	cache.Set(ctx, key, embedding)

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}

	if len(got) != len(embedding) {
		t.Errorf("got len %d, want %d", len(got), len(embedding))
	}

	for i := range embedding {
		if got[i] != embedding[i] {
			t.Errorf("got[%d] = %f, want %f", i, got[i], embedding[i])
		}
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	cache := NewMemoryCache(100)

	_, ok := cache.Get(context.Background(), "not in cache")
	if ok {
		t.Error("expected cache miss")
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	cache := NewMemoryCache(3)
	ctx := context.Background()

	// Fill cache
	cache.Set(ctx, "a", []float32{1})
	cache.Set(ctx, "b", []float32{2})
	cache.Set(ctx, "c", []float32{3})

	// Add one more (should evict "a")
	cache.Set(ctx, "d", []float32{4})

	// "a" should be evicted
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("expected 'a' to be evicted")
	}

	// Others should still be present
	if _, ok := cache.Get(ctx, "b"); !ok {
		t.Error("expected 'b' to be present")
	}
	if _, ok := cache.Get(ctx, "d"); !ok {
		t.Error("expected 'd' to be present")
	}
}

func TestMemoryCache_LRUOrder(t *testing.T) {
	cache := NewMemoryCache(2)
	ctx := context.Background()

	cache.Set(ctx, "a", []float32{1})
	cache.Set(ctx, "b", []float32{2})

	// Touch "a" so "b" becomes the eviction candidate
	cache.Get(ctx, "a")

	cache.Set(ctx, "c", []float32{3})

	if _, ok := cache.Get(ctx, "a"); !ok {
		t.Error("expected 'a' to survive (recently used)")
	}
	if _, ok := cache.Get(ctx, "b"); ok {
		t.Error("expected 'b' to be evicted")
	}
}

func TestMemoryCache_CopyOnGet(t *testing.T) {
	cache := NewMemoryCache(10)
	ctx := context.Background()

	cache.Set(ctx, "a", []float32{1, 2, 3})

	got, _ := cache.Get(ctx, "a")
	got[0] = 99

	again, _ := cache.Get(ctx, "a")
	if again[0] != 1 {
		t.Errorf("cache entry mutated through returned slice: got %f, want 1", again[0])
	}
}

func TestMemoryCache_SizeAndClear(t *testing.T) {
	cache := NewMemoryCache(10)
	ctx := context.Background()

	cache.Set(ctx, "a", []float32{1})
	cache.Set(ctx, "b", []float32{2})

	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}

	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", cache.Size())
	}
}
