package domain

import (
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Product describes one raster source and how to turn its stored integers
// into physical units.
type Product struct {
	ID       string // catalog collection ID
	Variable string // short name used in logs, metrics and results
	Band     string
	QABand   string
	QAMask   uint32 // QABand bits that encode cloud state; all zero means clear

	ScaleFactor float64
	Offset      float64
}

// Vegetation is the MOD13Q1 EVI product.
var Vegetation = Product{
	ID:          "MODIS/061/MOD13Q1",
	Variable:    "evi",
	Band:        "EVI",
	QABand:      "SummaryQA",
	QAMask:      0b11,
	ScaleFactor: 0.0001,
}

// Temperature is the MOD11A1 daytime LST product, scaled to degrees Celsius.
var Temperature = Product{
	ID:          "MODIS/061/MOD11A1",
	Variable:    "lst",
	Band:        "LST_Day_1km",
	QABand:      "QC_Day",
	QAMask:      0b11,
	ScaleFactor: 0.02,
	Offset:      -273.15,
}

// ScaleToUnits converts raw samples to physical units.
func ScaleToUnits(g *raster.Grid, p Product) *raster.Grid {
	return g.Map(func(v float64) float64 { return v*p.ScaleFactor + p.Offset })
}

// LandCover selects the classification raster and the class codes that count
// as forest.
type LandCover struct {
	ProductID string
	Band      string
	Epoch     time.Time
	Classes   []int
}

// DefaultLandCover is MCD12Q1 LC_Type1 for 2020 with the five IGBP forest
// classes.
var DefaultLandCover = LandCover{
	ProductID: "MODIS/061/MCD12Q1",
	Band:      "LC_Type1",
	Epoch:     time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
	Classes:   []int{1, 2, 3, 4, 5},
}
