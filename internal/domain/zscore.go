package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// MinStdDev is the smallest cross-year standard deviation accepted as a
// Z-score denominator. Pixels at or below it are no-data.
const MinStdDev = 1e-9

// ErrEmptySeries is returned when a cross-year operation receives no years.
var ErrEmptySeries = errors.New("empty series")

// NormalizeZScores divides every year's anomaly by the per-pixel sample
// standard deviation (N-1) of the anomalies across all years, where N is the
// number of years valid at that pixel. It needs the complete series.
//
// Pixels valid in fewer than two years, or whose stddev does not exceed
// MinStdDev, are no-data in every year. The stddev grid is returned alongside
// the Z-scores.
func NormalizeZScores(anomalies Series) (Series, *raster.Grid, error) {
	if len(anomalies) == 0 {
		return nil, nil, fmt.Errorf("normalize z-scores: %w", ErrEmptySeries)
	}
	grids := anomalies.Grids()
	if err := raster.CheckAligned("normalize z-scores", grids...); err != nil {
		return nil, nil, err
	}

	sd, err := raster.Reduce(grids[0].Shape(), grids, raster.StdDev)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize z-scores: %w", err)
	}
	sd = sd.Map(func(v float64) float64 {
		if v <= MinStdDev {
			return math.NaN()
		}
		return v
	})

	out := make(Series, 0, len(anomalies))
	for _, yg := range anomalies {
		z, err := raster.Div(yg.Grid, sd)
		if err != nil {
			return nil, nil, fmt.Errorf("z-score %d: %w", yg.Year, err)
		}
		out = append(out, YearGrid{Year: yg.Year, Grid: z.WithTime(yg.Grid.Time()).WithBand("ZScore")})
	}
	return out, sd.WithBand("StdDev"), nil
}
