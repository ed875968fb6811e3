package domain

import (
	"fmt"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// DefaultBaselineRange is the reference whole-period range. The end date is
// exclusive.
func DefaultBaselineRange(startYear, endYear int) raster.DateRange {
	return raster.DateRange{
		Start: YearStart(startYear),
		End:   YearStart(endYear).AddDate(0, 11, 30),
	}
}

// Baseline is the long-term reference composite: the per-pixel median of
// every cloud-masked scene in r, scaled and clipped like the yearly
// composites. It is computed once per product.
func (b CompositeBuilder) Baseline(c raster.Collection, p Product, r raster.DateRange) (*raster.Grid, error) {
	g, err := maskedMedian(c.FilterDate(r), p, b.Shape)
	if err != nil {
		return nil, fmt.Errorf("baseline %s %s: %w", p.Variable, r, err)
	}
	return g.Clip(b.Region).WithBand(p.Band).WithTime(r.Start), nil
}
