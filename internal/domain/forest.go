package domain

import (
	"fmt"
	"math"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// ForestMask remaps the class codes in classes to 1 and every other code to
// no-data, then keeps pixels whose remapped value equals 1. The result is 1
// on forest pixels and no-data elsewhere.
func ForestMask(classification *raster.Grid, classes []int) *raster.Grid {
	forest := make(map[int]struct{}, len(classes))
	for _, c := range classes {
		forest[c] = struct{}{}
	}

	remapped := classification.Map(func(v float64) float64 {
		if v != math.Trunc(v) {
			return math.NaN()
		}
		if _, ok := forest[int(v)]; ok {
			return 1
		}
		return math.NaN()
	})
	return remapped.Map(func(v float64) float64 {
		if v == 1 {
			return 1
		}
		return math.NaN()
	}).WithBand("ForestMask")
}

// ApplyForestMask keeps correlation values on forest pixels only.
func ApplyForestMask(correlation, mask *raster.Grid) (*raster.Grid, error) {
	out, err := correlation.UpdateMask(mask)
	if err != nil {
		return nil, fmt.Errorf("apply forest mask: %w", err)
	}
	return out, nil
}
