package paysim

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestIdempotencyCache_Lock_SameHandlePerKey(t *testing.T) {
	cache := NewIdempotencyCache(10, time.Minute)

	lock1 := cache.Lock("key-a")
	lock2 := cache.Lock("key-a")
	lock3 := cache.Lock("key-b")

	if lock1 != lock2 {
		t.Error("Expected same handle for same key")
	}
	if lock1 == lock3 {
		t.Error("Expected distinct handles for distinct keys")
	}
}

func TestIdempotencyCache_Lock_MutualExclusion(t *testing.T) {
	cache := NewIdempotencyCache(10, time.Minute)
	lock := cache.Lock("key")

	lock.Acquire()

	acquired := make(chan struct{})
	go func() {
		other := cache.Lock("key")
		other.Acquire()
		close(acquired)
		other.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("Second acquire succeeded while handle was held")
	case <-time.After(50 * time.Millisecond):
	}

	lock.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Second acquire never succeeded after release")
	}
}

func TestIdempotencyCache_LookupMissThenHit(t *testing.T) {
	cache := NewIdempotencyCache(10, time.Minute)
	outcome := NewSuccessOutcome("tx-1", "client-1", 12)

	if _, ok := cache.Lookup("key"); ok {
		t.Fatal("Expected miss on empty cache")
	}

	cache.Record("key", outcome, 200)

	entry, ok := cache.Lookup("key")
	if !ok {
		t.Fatal("Expected hit after record")
	}
	if entry.Outcome.TransactionID != "tx-1" {
		t.Errorf("Expected tx-1, got %s", entry.Outcome.TransactionID)
	}
	if entry.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", entry.StatusCode)
	}
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	cache := NewIdempotencyCache(10, 10*time.Minute, WithCacheClock(clock))

	cache.Lock("key")
	cache.Record("key", NewSuccessOutcome("tx-1", "client-1", 12), 200)

	// Just inside the TTL: still a hit.
	clock.Advance(10*time.Minute - time.Second)
	if _, ok := cache.Lookup("key"); !ok {
		t.Fatal("Expected hit just before TTL")
	}

	// Lookup re-ranked but did not re-stamp; entry expires from insert time.
	clock.Advance(2 * time.Second)
	if _, ok := cache.Lookup("key"); ok {
		t.Fatal("Expected miss after TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected expired entry to be deleted, have %d entries", cache.Len())
	}
	if cache.HasLock("key") {
		t.Error("Expected lock handle to be removed with expired entry")
	}
}

func TestIdempotencyCache_EvictsLeastRecentlyTouched(t *testing.T) {
	cache := NewIdempotencyCache(3, time.Minute)

	for _, key := range []string{"a", "b", "c"} {
		cache.Lock(key)
		cache.Record(key, NewSuccessOutcome("tx-"+key, key, 10), 200)
	}

	// Touch "a" so "b" becomes least recently used.
	if _, ok := cache.Lookup("a"); !ok {
		t.Fatal("Expected hit for a")
	}

	cache.Lock("d")
	cache.Record("d", NewSuccessOutcome("tx-d", "d", 10), 200)

	if cache.Len() != 3 {
		t.Fatalf("Expected exactly one eviction, have %d entries", cache.Len())
	}
	if _, ok := cache.Lookup("b"); ok {
		t.Error("Expected b (least recently touched) to be evicted")
	}
	if cache.HasLock("b") {
		t.Error("Expected evicted key's lock handle to be removed")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := cache.Lookup(key); !ok {
			t.Errorf("Expected %s to survive eviction", key)
		}
	}
}

func TestIdempotencyCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := NewIdempotencyCache(2, time.Minute)

	cache.Record("a", NewSuccessOutcome("tx-a", "a", 10), 200)
	cache.Record("b", NewSuccessOutcome("tx-b", "b", 10), 200)
	cache.Record("a", NewFailureOutcome(ReasonAccountClosed, "a"), 409)

	if cache.Len() != 2 {
		t.Errorf("Expected overwrite to keep size at 2, got %d", cache.Len())
	}
	entry, ok := cache.Lookup("a")
	if !ok || entry.StatusCode != 409 {
		t.Error("Expected overwritten entry for a")
	}
}

func TestIdempotencyCache_LookupReturnsCopy(t *testing.T) {
	cache := NewIdempotencyCache(10, time.Minute)
	cache.Record("key", NewSuccessOutcome("tx-1", "client-1", 12), 200)

	entry, _ := cache.Lookup("key")
	entry.Outcome.TransactionID = "tampered"

	fresh, _ := cache.Lookup("key")
	if fresh.Outcome.TransactionID != "tx-1" {
		t.Error("Expected cached entry to be immutable through returned copies")
	}
}

func TestIdempotencyCache_ConcurrentAccess(t *testing.T) {
	cache := NewIdempotencyCache(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("key-%d", (n+j)%150)
				lock := cache.Lock(key)
				lock.Acquire()
				if _, ok := cache.Lookup(key); !ok {
					cache.Record(key, NewSuccessOutcome("tx", key, 1), 200)
				}
				lock.Release()
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() > 100 {
		t.Errorf("Expected cache bounded at 100 entries, have %d", cache.Len())
	}
}
