package domain

import (
	"fmt"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Anomaly returns composite - baseline, stamped with the composite's time.
func Anomaly(composite, baseline *raster.Grid) (*raster.Grid, error) {
	d, err := raster.Sub(composite, baseline)
	if err != nil {
		return nil, fmt.Errorf("anomaly: %w", err)
	}
	return d.WithTime(composite.Time()), nil
}

// Anomalies applies Anomaly to every year of composites.
func Anomalies(composites Series, baseline *raster.Grid) (Series, error) {
	out := make(Series, 0, len(composites))
	for _, yg := range composites {
		a, err := Anomaly(yg.Grid, baseline)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", yg.Year, err)
		}
		out = append(out, YearGrid{Year: yg.Year, Grid: a})
	}
	return out, nil
}
