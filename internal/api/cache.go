package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// QueueLoader loads a scored, sorted approval queue.
type QueueLoader func(ctx context.Context, f workflow.QueueFilter) ([]*workflow.QueueItem, error)

// QueueCache is a TTL cache of approval queue listings keyed by filter.
// Concurrent misses for the same filter share one load.
type QueueCache struct {
	mu      sync.RWMutex
	entries map[string]queueEntry
	// gen advances on Invalidate so loads that started earlier are not stored.
	gen   uint64
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

type queueEntry struct {
	items    []*workflow.QueueItem
	loadedAt time.Time
}

// NewQueueCache creates a cache. A ttl of zero disables caching.
func NewQueueCache(ttl time.Duration) *QueueCache {
	return &QueueCache{
		entries: make(map[string]queueEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func queueKey(f workflow.QueueFilter) string {
	return fmt.Sprintf("%s|%d|%s|%s|%t|%s|%s|%d|%d",
		f.ApproverID, f.Stage, f.Priority, f.DocumentType, f.OverdueOnly, f.DueWithin, f.Sort, f.Limit, f.Offset)
}

// Queue returns the cached listing for f or loads it.
func (c *QueueCache) Queue(ctx context.Context, f workflow.QueueFilter, load QueueLoader) ([]*workflow.QueueItem, error) {
	if c == nil || c.ttl <= 0 {
		return load(ctx, f)
	}
	key := queueKey(f)

	if items, ok := c.lookup(key); ok {
		return items, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if items, ok := c.lookup(key); ok {
			return items, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		items, err := load(ctx, f)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.entries[key] = queueEntry{items: items, loadedAt: c.now()}
		}
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*workflow.QueueItem), nil
}

func (c *QueueCache) lookup(key string) ([]*workflow.QueueItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.loadedAt) >= c.ttl {
		return nil, false
	}
	return e.items, true
}

// Invalidate drops every cached listing.
func (c *QueueCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]queueEntry)
	c.gen++
	c.mu.Unlock()
}
