package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/jonboulle/clockwork"
)

// CachedCatalog wraps a Catalog with in-memory LRU caches. Scheduled runs
// re-read the same baseline and land-cover data, so hits are the common case.
type CachedCatalog struct {
	inner           domain.Catalog
	metrics         *observability.Metrics
	queries         *lruCache[raster.Collection]
	classifications *lruCache[*raster.Grid]
}

// NewCachedCatalog creates a cache decorator around a catalog. Entries
// expire ttl after they were stored so scheduled runs pick up reprocessed
// scenes; a zero ttl keeps them until evicted.
func NewCachedCatalog(inner domain.Catalog, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedCatalog {
	return newCachedCatalog(inner, maxEntries, ttl, clockwork.NewRealClock(), metrics)
}

func newCachedCatalog(inner domain.Catalog, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedCatalog {
	return &CachedCatalog{
		inner:           inner,
		metrics:         metrics,
		queries:         newLRUCache[raster.Collection](maxEntries, ttl, clock),
		classifications: newLRUCache[*raster.Grid](maxEntries, ttl, clock),
	}
}

func (c *CachedCatalog) Query(ctx context.Context, productID string, r raster.DateRange, region raster.Region) (raster.Collection, error) {
	key := fmt.Sprintf("%s|%s|%s", productID, r, region)
	if col, ok := c.queries.get(key); ok {
		c.metrics.CatalogCache.WithLabelValues("query", "hit").Inc()
		return col, nil
	}
	c.metrics.CatalogCache.WithLabelValues("query", "miss").Inc()
	col, err := c.inner.Query(ctx, productID, r, region)
	if err != nil {
		return col, err
	}
	c.queries.put(key, col)
	return col, nil
}

func (c *CachedCatalog) Classification(ctx context.Context, productID, band string, epoch time.Time, region raster.Region) (*raster.Grid, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", productID, band, epoch.Format(time.DateOnly), region)
	if g, ok := c.classifications.get(key); ok {
		c.metrics.CatalogCache.WithLabelValues("classification", "hit").Inc()
		return g, nil
	}
	c.metrics.CatalogCache.WithLabelValues("classification", "miss").Inc()
	g, err := c.inner.Classification(ctx, productID, band, epoch, region)
	if err != nil {
		return nil, err
	}
	c.classifications.put(key, g)
	return g, nil
}

// lruCache is a simple thread-safe LRU cache with optional expiry. Cached
// values are shared, so V must be immutable.
type lruCache[V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key     string
	value   V
	expires time.Time // zero when the cache has no ttl
	prev    *entry[V]
	next    *entry[V]
}

func newLRUCache[V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !e.expires.IsZero() && !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(c.ttl)
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = c.expiry()
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value, expires: c.expiry()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
