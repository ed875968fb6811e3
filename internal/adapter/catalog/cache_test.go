package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingCatalog struct {
	queryCalls int
	classCalls int
	err        error
}

func (m *countingCatalog) Query(_ context.Context, _ string, _ raster.DateRange, _ raster.Region) (raster.Collection, error) {
	m.queryCalls++
	if m.err != nil {
		return raster.Collection{}, m.err
	}
	return raster.NewCollection()
}

func (m *countingCatalog) Classification(_ context.Context, _, _ string, _ time.Time, _ raster.Region) (*raster.Grid, error) {
	m.classCalls++
	if m.err != nil {
		return nil, m.err
	}
	return raster.Filled(testShape, 1), nil
}

var (
	testRange  = raster.DateRange{Start: time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)}
	testRegion = raster.Region{MinX: 0, MinY: 0, MaxX: 2, MaxY: 1}
	testEpoch  = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
)

// --- CachedCatalog tests ---

func TestCachedCatalog_QueryCacheHit(t *testing.T) {
	inner := &countingCatalog{}
	cached := NewCachedCatalog(inner, 10, 0, observability.NewMetricsForTesting())

	_, err := cached.Query(context.Background(), "p", testRange, testRegion)
	require.NoError(t, err)
	_, err = cached.Query(context.Background(), "p", testRange, testRegion)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.queryCalls, "should only call inner once")
}

func TestCachedCatalog_ClassificationCacheHit(t *testing.T) {
	inner := &countingCatalog{}
	cached := NewCachedCatalog(inner, 10, 0, observability.NewMetricsForTesting())

	g1, err := cached.Classification(context.Background(), "lc", "LC_Type1", testEpoch, testRegion)
	require.NoError(t, err)
	g2, err := cached.Classification(context.Background(), "lc", "LC_Type1", testEpoch, testRegion)
	require.NoError(t, err)

	assert.Same(t, g1, g2)
	assert.Equal(t, 1, inner.classCalls)
}

func TestCachedCatalog_DifferentKeysMiss(t *testing.T) {
	inner := &countingCatalog{}
	cached := NewCachedCatalog(inner, 10, 0, observability.NewMetricsForTesting())

	other := testRange
	other.End = other.End.AddDate(0, 0, 4)

	_, _ = cached.Query(context.Background(), "p", testRange, testRegion)
	_, _ = cached.Query(context.Background(), "p", other, testRegion)
	_, _ = cached.Query(context.Background(), "q", testRange, testRegion)

	assert.Equal(t, 3, inner.queryCalls)
}

func TestCachedCatalog_ErrorsNotCached(t *testing.T) {
	inner := &countingCatalog{err: errors.New("boom")}
	cached := NewCachedCatalog(inner, 10, 0, observability.NewMetricsForTesting())

	_, err := cached.Query(context.Background(), "p", testRange, testRegion)
	require.Error(t, err)
	_, err = cached.Query(context.Background(), "p", testRange, testRegion)
	require.Error(t, err)

	_, err = cached.Classification(context.Background(), "lc", "LC_Type1", testEpoch, testRegion)
	require.Error(t, err)

	assert.Equal(t, 2, inner.queryCalls, "failures must be retried on the next call")
	assert.Equal(t, 0, cached.classifications.size())
}

func TestCachedCatalog_EntriesExpire(t *testing.T) {
	inner := &countingCatalog{}
	fc := clockwork.NewFakeClock()
	cached := newCachedCatalog(inner, 10, time.Hour, fc, observability.NewMetricsForTesting())

	_, err := cached.Query(context.Background(), "p", testRange, testRegion)
	require.NoError(t, err)
	fc.Advance(59 * time.Minute)
	_, err = cached.Query(context.Background(), "p", testRange, testRegion)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.queryCalls, "fresh entry is served from cache")

	fc.Advance(time.Minute)
	_, err = cached.Query(context.Background(), "p", testRange, testRegion)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.queryCalls, "expired entry is fetched again")

	_, err = cached.Classification(context.Background(), "lc", "LC_Type1", testEpoch, testRegion)
	require.NoError(t, err)
	fc.Advance(2 * time.Hour)
	_, err = cached.Classification(context.Background(), "lc", "LC_Type1", testEpoch, testRegion)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.classCalls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3, 0, clockwork.NewRealClock())

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2, 0, clockwork.NewRealClock())

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string](2, 0, clockwork.NewRealClock())

	c.put("a", "A")
	c.put("b", "B")
	c.get("a")
	c.put("c", "C") // evicts "b", the least recently used

	_, ok := c.get("b")
	assert.False(t, ok)
	_, ok = c.get("a")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[int](2, 0, clockwork.NewRealClock())

	c.put("a", 1)
	c.put("a", 2)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_ExpiredEntryIsRemoved(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newLRUCache[string](2, time.Minute, fc)

	c.put("a", "A")
	fc.Advance(time.Minute)

	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.size())

	c.put("b", "B")
	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)
}
