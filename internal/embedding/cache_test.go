package embedding

import "testing"

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a hit")
	}
	c.Set("a", []float32{1})
	if vec, ok := c.Get("a"); !ok || vec[0] != 1 {
		t.Error("cached value not returned")
	}
}

func TestCache_Eviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	// touch a so b is the eviction victim
	c.Get("a")
	c.Set("c", []float32{3})
	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry not evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry evicted")
	}
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{9})
	if vec, _ := c.Get("a"); vec[0] != 9 {
		t.Error("overwrite did not take effect")
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}
