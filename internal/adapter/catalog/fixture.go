package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// FixtureCatalog implements domain.Catalog over an in-memory Fixture.
// Scenes are returned whole; clipping to the region happens in the analysis.
type FixtureCatalog struct {
	fx *Fixture
}

// NewFixtureCatalog wraps a loaded fixture.
func NewFixtureCatalog(fx *Fixture) *FixtureCatalog {
	return &FixtureCatalog{fx: fx}
}

// OpenFixture loads path and wraps it as a catalog.
func OpenFixture(path string) (*FixtureCatalog, error) {
	fx, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return NewFixtureCatalog(fx), nil
}

func (c *FixtureCatalog) Query(ctx context.Context, productID string, r raster.DateRange, _ raster.Region) (raster.Collection, error) {
	if err := ctx.Err(); err != nil {
		return raster.Collection{}, err
	}
	scenes, ok := c.fx.Products[productID]
	if !ok {
		return raster.Collection{}, &domain.SourceUnavailableError{
			Op: "query", ProductID: productID, Err: errors.New("product not in fixture"),
		}
	}
	inRange := make([]Scene, 0, len(scenes))
	for _, s := range scenes {
		if r.Contains(s.Time) {
			inRange = append(inRange, s)
		}
	}
	col, err := decodeCollection(c.fx.Shape, inRange)
	if err != nil {
		return raster.Collection{}, fmt.Errorf("fixture %s: %w", productID, err)
	}
	return col, nil
}

func (c *FixtureCatalog) Classification(ctx context.Context, productID, band string, epoch time.Time, _ raster.Region) (*raster.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, cl := range c.fx.Classifications[productID] {
		if cl.Band == band && cl.Epoch.Equal(epoch) {
			g, err := decodeGrid(c.fx.Shape, cl.Values)
			if err != nil {
				return nil, fmt.Errorf("fixture %s: %w", productID, err)
			}
			return g.WithBand(band).WithTime(epoch), nil
		}
	}
	return nil, &domain.SourceUnavailableError{
		Op:        "classification",
		ProductID: productID,
		Err:       fmt.Errorf("no %s classification for %s in fixture", band, epoch.Format(time.DateOnly)),
	}
}
