package domain

import (
	"fmt"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// DefaultIntervalDays is the MOD13Q1 compositing period.
const DefaultIntervalDays = 16

// intervalSpanDays bounds the window offsets generated for one year. Offsets
// run from 0 to this value inclusive in steps of the interval length.
const intervalSpanDays = 365

// IntervalStarts returns the start of every compositing window of the year
// beginning at yearStart. With 16-day windows this yields 23 starts, the
// last on day 352; windows are not clipped to the calendar year.
func IntervalStarts(yearStart time.Time, intervalDays int) []time.Time {
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	starts := make([]time.Time, 0, intervalSpanDays/intervalDays+1)
	for off := 0; off <= intervalSpanDays; off += intervalDays {
		starts = append(starts, yearStart.AddDate(0, 0, off))
	}
	return starts
}

// YearStart returns January 1st of year in UTC.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// CompositeBuilder produces composites on a fixed grid, clipped to a region
// of interest.
type CompositeBuilder struct {
	Shape        raster.Shape
	Region       raster.Region
	IntervalDays int
}

func (b CompositeBuilder) intervalDays() int {
	if b.IntervalDays <= 0 {
		return DefaultIntervalDays
	}
	return b.IntervalDays
}

// Interval builds the composite of one window: cloud mask every scene in r,
// take the per-pixel median of the target band and scale it to units. A
// window without usable scenes is all no-data.
func (b CompositeBuilder) Interval(c raster.Collection, p Product, r raster.DateRange) (*raster.Grid, error) {
	g, err := maskedMedian(c.FilterDate(r), p, b.Shape)
	if err != nil {
		return nil, fmt.Errorf("interval composite %s %s: %w", p.Variable, r, err)
	}
	return g.WithTime(r.Start), nil
}

// Yearly builds the window composites of the year starting at yearStart and
// reduces them with a per-pixel median. A pixel is no-data only when every
// window is no-data there.
func (b CompositeBuilder) Yearly(c raster.Collection, p Product, yearStart time.Time) (*raster.Grid, error) {
	days := b.intervalDays()
	starts := IntervalStarts(yearStart, days)

	windows := make([]*raster.Grid, 0, len(starts))
	for _, s := range starts {
		g, err := b.Interval(c, p, raster.DateRange{Start: s, End: s.AddDate(0, 0, days)})
		if err != nil {
			return nil, err
		}
		windows = append(windows, g)
	}

	yearly, err := raster.Reduce(b.Shape, windows, raster.Median)
	if err != nil {
		return nil, fmt.Errorf("yearly composite %s %d: %w", p.Variable, yearStart.Year(), err)
	}
	return yearly.Clip(b.Region).WithBand(p.Band).WithTime(yearStart), nil
}

// QueryRange returns the date range a catalog query must cover so that every
// window of every year in [startYear, endYear] and the baseline range are
// available.
func QueryRange(startYear, endYear, intervalDays int, baseline raster.DateRange) raster.DateRange {
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	starts := IntervalStarts(YearStart(endYear), intervalDays)
	end := starts[len(starts)-1].AddDate(0, 0, intervalDays)
	if baseline.End.After(end) {
		end = baseline.End
	}
	start := YearStart(startYear)
	if !baseline.Start.IsZero() && baseline.Start.Before(start) {
		start = baseline.Start
	}
	return raster.DateRange{Start: start, End: end}
}

func maskedMedian(c raster.Collection, p Product, shape raster.Shape) (*raster.Grid, error) {
	masked, err := c.Map(func(im raster.Image) (raster.Image, error) {
		return CloudMask(im, p)
	})
	if err != nil {
		return nil, err
	}
	median, err := masked.Reduce(shape, p.Band, raster.Median)
	if err != nil {
		return nil, err
	}
	return ScaleToUnits(median, p), nil
}
