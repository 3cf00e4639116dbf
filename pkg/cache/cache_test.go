package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type cmdKey struct {
	me  string
	idx string
	typ int
	val int
}

func TestCache(t *testing.T) {
	t.Run("HitWithinTTL", func(t *testing.T) {
		c := New[cmdKey, string](time.Minute)
		key := cmdKey{me: "2d34", idx: "L1", typ: 0x81, val: 1}

		if _, ok := c.Get(key); ok {
			t.Fatal("Get() hit on empty cache")
		}

		c.Put(key, "ok")
		v, ok := c.Get(key)
		if !ok {
			t.Fatal("Get() missed after Put()")
		}
		if v != "ok" {
			t.Errorf("Get() = %q, want %q", v, "ok")
		}
	})

	t.Run("MissAfterExpiry", func(t *testing.T) {
		c := New[string, int](10 * time.Millisecond)
		c.Put("a", 1)

		time.Sleep(25 * time.Millisecond)

		if _, ok := c.Get("a"); ok {
			t.Error("Get() hit on expired entry")
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d after expired lookup, want 0", c.Len())
		}
	})

	t.Run("DistinctKeys", func(t *testing.T) {
		c := New[cmdKey, int](time.Minute)
		on := cmdKey{me: "2d34", idx: "L1", typ: 0x81, val: 1}
		off := cmdKey{me: "2d34", idx: "L1", typ: 0x80, val: 0}

		c.Put(on, 1)
		if _, ok := c.Get(off); ok {
			t.Error("Get() hit for a different command key")
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		c := New[string, int](time.Minute)
		c.Put("a", 1)
		c.Put("a", 2)

		v, _ := c.Get("a")
		if v != 2 {
			t.Errorf("Get() = %d, want 2", v)
		}
		if c.Len() != 1 {
			t.Errorf("Len() = %d, want 1", c.Len())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c := New[string, int](time.Minute)
		c.Put("a", 1)
		c.Delete("a")

		if _, ok := c.Get("a"); ok {
			t.Error("Get() hit after Delete()")
		}
	})

	t.Run("Purge", func(t *testing.T) {
		c := New[string, int](time.Minute)
		c.Put("a", 1)
		c.Put("b", 2)
		c.Purge()

		if c.Len() != 0 {
			t.Errorf("Len() = %d after Purge(), want 0", c.Len())
		}
	})

	t.Run("DisabledCacheNeverStores", func(t *testing.T) {
		c := New[string, int](0)
		c.Put("a", 1)

		if _, ok := c.Get("a"); ok {
			t.Error("Get() hit on disabled cache")
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d on disabled cache, want 0", c.Len())
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		c := New[string, int](time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := fmt.Sprintf("k%d", j%10)
					c.Put(key, n)
					c.Get(key)
				}
			}(i)
		}
		wg.Wait()

		if c.Len() != 10 {
			t.Errorf("Len() = %d, want 10", c.Len())
		}
	})
}
