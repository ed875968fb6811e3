package domain

import (
	"sort"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// YearGrid is one year's grid in a cross-year series.
type YearGrid struct {
	Year int
	Grid *raster.Grid
}

// Series is a per-year sequence of grids for one variable, ordered by year.
type Series []YearGrid

// Years returns the series' years in order.
func (s Series) Years() []int {
	out := make([]int, len(s))
	for i, yg := range s {
		out[i] = yg.Year
	}
	return out
}

// Grids returns the series' grids in order.
func (s Series) Grids() []*raster.Grid {
	out := make([]*raster.Grid, len(s))
	for i, yg := range s {
		out[i] = yg.Grid
	}
	return out
}

// Lookup returns the grid for year.
func (s Series) Lookup(year int) (*raster.Grid, bool) {
	for _, yg := range s {
		if yg.Year == year {
			return yg.Grid, true
		}
	}
	return nil, false
}

// Sorted returns a copy of s ordered by year.
func (s Series) Sorted() Series {
	out := append(Series(nil), s...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// YearRange returns every year from start to end inclusive.
func YearRange(start, end int) []int {
	if end < start {
		return nil
	}
	out := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, y)
	}
	return out
}
