package cacheproxy

import (
	"context"

	"github.com/cacheproxy/cacheproxy/metrics"
)

// invalidationListener is the single long-lived consumer described in
// spec.md §4.4: it subscribes once at construction and applies every
// RefreshMessage it sees to the store until the context is cancelled.
type invalidationListener struct {
	store   *CacheStore
	sub     *refreshSubscription
	metrics metrics.Collector
}

func startInvalidationListener(ctx context.Context, channel *RefreshChannel, store *CacheStore, collector metrics.Collector) {
	l := &invalidationListener{
		store:   store,
		sub:     channel.subscribe(),
		metrics: collector,
	}
	go l.run(ctx, channel)
}

func (l *invalidationListener) run(ctx context.Context, channel *RefreshChannel) {
	defer channel.unsubscribe(l.sub)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.sub.lagged:
			GetLogger().Warn("invalidation listener fell behind the refresh channel; continuing")
		case msg, ok := <-l.sub.messages:
			if !ok {
				return
			}
			l.apply(msg)
		}
	}
}

func (l *invalidationListener) apply(msg RefreshMessage) {
	switch msg.Kind {
	case RefreshAll:
		l.store.Clear()
		l.metrics.RecordRefresh("all")
		GetLogger().Debug("cache cleared by refresh trigger")
	case RefreshPattern:
		l.store.ClearByPattern(msg.Pattern)
		l.metrics.RecordRefresh("pattern")
		GetLogger().Debug("cache entries cleared by pattern", "pattern", msg.Pattern)
	}
	l.metrics.RecordCacheSize("positive", int64(l.store.Size()))
	l.metrics.RecordCacheSize("negative", int64(l.store.SizeNegative()))
}
