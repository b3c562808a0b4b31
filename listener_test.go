package cacheproxy

import (
	"context"
	"testing"
	"time"

	"github.com/cacheproxy/cacheproxy/metrics"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition not met within timeout")
	}
}

func TestInvalidationListenerAppliesFullFlush(t *testing.T) {
	ch := NewRefreshChannel()
	store := NewCacheStore(DefaultNegativeCacheCapacity)
	store.Set("GET:/x", mustResponse(200, "a"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startInvalidationListener(ctx, ch, store, metrics.DefaultCollector)

	NewRefreshTrigger(ch).Trigger()

	waitUntil(t, time.Second, func() bool { return store.Size() == 0 })
}

func TestInvalidationListenerAppliesPatternFlush(t *testing.T) {
	ch := NewRefreshChannel()
	store := NewCacheStore(DefaultNegativeCacheCapacity)
	store.Set("GET:/api/a", mustResponse(200, "a"))
	store.Set("GET:/other", mustResponse(200, "b"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startInvalidationListener(ctx, ch, store, metrics.DefaultCollector)

	NewRefreshTrigger(ch).TriggerByPattern("GET:/api/*")

	waitUntil(t, time.Second, func() bool {
		_, aOk := store.Get("GET:/api/a")
		return !aOk
	})
	if _, ok := store.Get("GET:/other"); !ok {
		t.Error("expected unrelated key to survive a pattern flush")
	}
}

func TestInvalidationListenerStopsOnContextCancel(t *testing.T) {
	ch := NewRefreshChannel()
	store := NewCacheStore(DefaultNegativeCacheCapacity)

	ctx, cancel := context.WithCancel(context.Background())
	startInvalidationListener(ctx, ch, store, metrics.DefaultCollector)
	cancel()

	// Give the goroutine a moment to observe cancellation, then confirm
	// subsequent triggers are no longer applied (best-effort: the listener
	// has unsubscribed, so the store must stay as it was).
	time.Sleep(20 * time.Millisecond)
	store.Set("GET:/x", mustResponse(200, "a"))
	NewRefreshTrigger(ch).Trigger()
	time.Sleep(20 * time.Millisecond)

	if _, ok := store.Get("GET:/x"); !ok {
		t.Error("a cancelled listener should no longer be subscribed, so the entry must survive")
	}
}
