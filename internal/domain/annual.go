package domain

import (
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"gonum.org/v1/gonum/stat"
)

// AnnualValue is the regional mean of one variable for one year. Value is nil
// when the year has no grid or no valid pixels.
type AnnualValue struct {
	Year   int      `json:"year"`
	Value  *float64 `json:"value"`
	Pixels int      `json:"pixels"`
}

// AnnualMeans returns one entry per year in years with the mean over the
// valid pixels of that year's grid.
func AnnualMeans(s Series, years []int) []AnnualValue {
	out := make([]AnnualValue, 0, len(years))
	for _, year := range years {
		av := AnnualValue{Year: year}
		if g, ok := s.Lookup(year); ok {
			av.Value, av.Pixels = RegionMean(g)
		}
		out = append(out, av)
	}
	return out
}

// RegionMean returns the mean of the valid pixels of g and their count, or
// nil when there are none.
func RegionMean(g *raster.Grid) (*float64, int) {
	vals := g.ValidValues()
	if len(vals) == 0 {
		return nil, 0
	}
	m := stat.Mean(vals, nil)
	return &m, len(vals)
}

// ChartRow joins both variables' annual values for one year.
type ChartRow struct {
	Year      int      `json:"year"`
	EVIZScore *float64 `json:"evi_zscore"`
	LSTZScore *float64 `json:"lst_zscore"`
}

// MergeAnnual joins vegetation and temperature annual values by year,
// following the order of veg. Years missing from temp stay absent.
func MergeAnnual(veg, temp []AnnualValue) []ChartRow {
	byYear := make(map[int]*float64, len(temp))
	for _, av := range temp {
		byYear[av.Year] = av.Value
	}
	rows := make([]ChartRow, 0, len(veg))
	for _, av := range veg {
		rows = append(rows, ChartRow{
			Year:      av.Year,
			EVIZScore: av.Value,
			LSTZScore: byYear[av.Year],
		})
	}
	return rows
}
