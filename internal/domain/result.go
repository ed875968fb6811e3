package domain

import (
	"fmt"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"gonum.org/v1/gonum/floats"
)

// ProductResult holds every intermediate of one variable's pipeline.
type ProductResult struct {
	Product       Product
	Baseline      *raster.Grid
	Composites    Series
	Anomalies     Series
	ZScores       Series
	StdDev        *raster.Grid
	AnnualZScore  []AnnualValue
	AnnualAnomaly []AnnualValue
}

// NewProductResult derives anomalies, Z-scores and annual means from a
// product's yearly composites and baseline.
func NewProductResult(p Product, baseline *raster.Grid, composites Series, years []int) (ProductResult, error) {
	composites = composites.Sorted()
	anomalies, err := Anomalies(composites, baseline)
	if err != nil {
		return ProductResult{}, fmt.Errorf("%s: %w", p.Variable, err)
	}
	zscores, sd, err := NormalizeZScores(anomalies)
	if err != nil {
		return ProductResult{}, fmt.Errorf("%s: %w", p.Variable, err)
	}
	return ProductResult{
		Product:       p,
		Baseline:      baseline,
		Composites:    composites,
		Anomalies:     anomalies,
		ZScores:       zscores,
		StdDev:        sd,
		AnnualZScore:  AnnualMeans(zscores, years),
		AnnualAnomaly: AnnualMeans(anomalies, years),
	}, nil
}

// Result is the output handed to the reporting layer.
type Result struct {
	Years       []int
	Region      raster.Region
	Vegetation  ProductResult
	Temperature ProductResult
	Correlation *raster.Grid // unmasked
	ForestMask  *raster.Grid
	Final       *raster.Grid // correlation on forest pixels only
	Chart       []ChartRow
	GeneratedAt time.Time
}

// Assemble correlates the two variables' Z-scores, applies the forest mask
// and stamps the result.
func Assemble(veg, temp ProductResult, forestMask *raster.Grid, years []int, region raster.Region) (*Result, error) {
	corr, err := Correlate(veg.ZScores, temp.ZScores)
	if err != nil {
		return nil, err
	}
	final, err := ApplyForestMask(corr, forestMask)
	if err != nil {
		return nil, err
	}
	return &Result{
		Years:       years,
		Region:      region,
		Vegetation:  veg,
		Temperature: temp,
		Correlation: corr,
		ForestMask:  forestMask,
		Final:       final,
		Chart:       MergeAnnual(veg.AnnualZScore, temp.AnnualZScore),
		GeneratedAt: now(),
	}, nil
}

// Summary condenses the final grid for logs, metrics and the HTTP surface.
type Summary struct {
	GeneratedAt    time.Time `json:"generated_at"`
	Region         string    `json:"region"`
	StartYear      int       `json:"start_year"`
	EndYear        int       `json:"end_year"`
	Pixels         int       `json:"pixels"`
	ForestPixels   int       `json:"forest_pixels"`
	ValidPixels    int       `json:"valid_pixels"`
	NoDataFraction float64   `json:"nodata_fraction"`
	Mean           *float64  `json:"mean"`
	Min            *float64  `json:"min"`
	Max            *float64  `json:"max"`
}

// Summarize computes the Summary of r.
func (r *Result) Summarize() Summary {
	s := Summary{
		GeneratedAt:  r.GeneratedAt,
		Region:       r.Region.String(),
		Pixels:       r.Final.Len(),
		ForestPixels: r.ForestMask.ValidCount(),
		ValidPixels:  r.Final.ValidCount(),
	}
	if len(r.Years) > 0 {
		s.StartYear, s.EndYear = r.Years[0], r.Years[len(r.Years)-1]
	}
	if s.Pixels > 0 {
		s.NoDataFraction = 1 - float64(s.ValidPixels)/float64(s.Pixels)
	}
	vals := r.Final.ValidValues()
	if len(vals) > 0 {
		mean, _ := RegionMean(r.Final)
		lo, hi := floats.Min(vals), floats.Max(vals)
		s.Mean, s.Min, s.Max = mean, &lo, &hi
	}
	return s
}
