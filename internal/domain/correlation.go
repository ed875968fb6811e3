package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"gonum.org/v1/gonum/floats"
)

// ErrSeriesMismatch is returned when two series do not cover the same years.
var ErrSeriesMismatch = errors.New("series cover different years")

// minCorrelationYears is the fewest shared valid years a pixel needs.
const minCorrelationYears = 2

// Correlate computes the per-pixel Pearson correlation of two Z-score series
// as Σ(A·B) / sqrt(ΣA²·ΣB²), pairing values by year. The product sum runs
// over years valid in both series; each sum of squares runs over the years
// valid in its own series. Pixels with fewer than two shared years, or a
// zero denominator, are no-data. The result is not clamped to [-1, 1].
func Correlate(a, b Series) (*raster.Grid, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("correlate: %w", ErrEmptySeries)
	}
	a, b = a.Sorted(), b.Sorted()
	if !slices.Equal(a.Years(), b.Years()) {
		return nil, fmt.Errorf("correlate: %w: %v vs %v", ErrSeriesMismatch, a.Years(), b.Years())
	}
	if err := raster.CheckAligned("correlate", append(a.Grids(), b.Grids()...)...); err != nil {
		return nil, err
	}

	shape := a[0].Grid.Shape()
	n := shape.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	xs := make([]float64, 0, len(a))
	ys := make([]float64, 0, len(b))

	for i := range n {
		xs, ys = xs[:0], ys[:0]
		var saa, sbb float64
		for k := range a {
			x, okA := a[k].Grid.At(i)
			y, okB := b[k].Grid.At(i)
			if okA {
				saa += x * x
			}
			if okB {
				sbb += y * y
			}
			if okA && okB {
				xs = append(xs, x)
				ys = append(ys, y)
			}
		}
		if len(xs) < minCorrelationYears {
			continue
		}

		xx := floats.Dot(xs, ys)
		yy := math.Sqrt(saa * sbb)
		if yy == 0 {
			continue
		}
		values[i] = xx / yy
		valid[i] = true
	}

	g, err := raster.NewGrid(shape, values, valid)
	if err != nil {
		return nil, fmt.Errorf("correlate: %w", err)
	}
	return g.WithBand("Correlation"), nil
}
