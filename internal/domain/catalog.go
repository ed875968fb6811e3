package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Catalog is the remote raster store the analysis reads from.
type Catalog interface {
	// Query returns the scenes of productID acquired in r that intersect region.
	Query(ctx context.Context, productID string, r raster.DateRange, region raster.Region) (raster.Collection, error)

	// Classification returns the single categorical raster of productID for
	// the given epoch.
	Classification(ctx context.Context, productID, band string, epoch time.Time, region raster.Region) (*raster.Grid, error)
}

// SourceUnavailableError reports a catalog failure. The analysis does not
// retry; retry policy belongs to the catalog client.
type SourceUnavailableError struct {
	Op        string
	ProductID string
	Err       error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s %s: %v", e.Op, e.ProductID, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
