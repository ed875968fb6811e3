// Package synth generates deterministic synthetic MODIS scenes for offline
// runs and tests.
//
// Every pixel shares one seasonal cycle. On top of it each year draws a
// per-pixel shock that raises LST and moves EVI by Coupling times the same
// shock, so the EVI/LST Z-score correlation at a pixel approaches the sign
// of its coupling: negative in the western half of the grid, positive in the
// eastern half.
package synth

import (
	"math"
	"math/rand"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/adapter/catalog"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Options configures the generator.
type Options struct {
	Shape     raster.Shape
	StartYear int
	EndYear   int
	Seed      int64

	// CloudFraction is the probability that a sample is flagged cloudy.
	CloudFraction float64

	// LSTStepDays is the temperature revisit period. MOD11A1 is daily; a
	// coarser step keeps fixtures small.
	LSTStepDays int

	// NoDataPixels never carry a sample in any scene.
	NoDataPixels []int
}

// Default returns an 8x8 grid over 2012-2022 in a temperate forest zone.
func Default() Options {
	return Options{
		Shape:         raster.Shape{Width: 8, Height: 8, OriginX: 10, OriginY: 50, PixelSize: 0.25},
		StartYear:     2012,
		EndYear:       2022,
		Seed:          42,
		CloudFraction: 0.2,
		LSTStepDays:   8,
	}
}

// Coupling returns the EVI response of pixel i to a warm year.
func Coupling(shape raster.Shape, i int) float64 {
	if i%shape.Width < shape.Width/2 {
		return -1
	}
	return 1
}

// IsForest reports whether pixel i is given a forest land-cover class.
// Even rows are forest.
func IsForest(shape raster.Shape, i int) bool {
	return (i/shape.Width)%2 == 0
}

const (
	eviStepDays = 16
	cloudyQA    = 0b10
	nonForest   = 12 // IGBP croplands
)

type generator struct {
	opts   Options
	rng    *rand.Rand
	noData map[int]bool
	shocks map[int][]float64 // year -> per-pixel shock
}

// Generate builds a fixture holding both products and the default land
// cover classification.
func Generate(opts Options) *catalog.Fixture {
	if opts.LSTStepDays <= 0 {
		opts.LSTStepDays = 1
	}
	g := &generator{
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		noData: make(map[int]bool, len(opts.NoDataPixels)),
		shocks: make(map[int][]float64),
	}
	for _, i := range opts.NoDataPixels {
		g.noData[i] = true
	}

	span := domain.QueryRange(opts.StartYear, opts.EndYear, domain.DefaultIntervalDays,
		domain.DefaultBaselineRange(opts.StartYear, opts.EndYear))

	// Shocks cover the spill-over year too so every scene has one.
	for y := opts.StartYear; y <= span.End.Year(); y++ {
		s := make([]float64, opts.Shape.Len())
		for i := range s {
			s[i] = g.rng.NormFloat64()
		}
		g.shocks[y] = s
	}

	return &catalog.Fixture{
		Shape: opts.Shape,
		Products: map[string][]catalog.Scene{
			domain.Vegetation.ID:  g.scenes(span, domain.Vegetation, eviStepDays, g.vegetation),
			domain.Temperature.ID: g.scenes(span, domain.Temperature, opts.LSTStepDays, g.temperature),
		},
		Classifications: map[string][]catalog.Classification{
			domain.DefaultLandCover.ProductID: {g.landCover()},
		},
	}
}

type sampler func(t time.Time, i int) (value, qa float64)

func (g *generator) scenes(r raster.DateRange, p domain.Product, stepDays int, sample sampler) []catalog.Scene {
	var out []catalog.Scene
	n := g.opts.Shape.Len()
	for _, t := range acquisitions(r, stepDays) {
		values := make(catalog.Samples, n)
		qa := make(catalog.Samples, n)
		for i := 0; i < n; i++ {
			if g.noData[i] {
				continue
			}
			v, q := sample(t, i)
			values[i], qa[i] = &v, &q
		}
		out = append(out, catalog.Scene{Time: t, Bands: map[string]catalog.Samples{p.Band: values, p.QABand: qa}})
	}
	return out
}

// acquisitions returns the scene times in r. Like MOD13Q1 the cycle
// restarts on January 1st of every year.
func acquisitions(r raster.DateRange, stepDays int) []time.Time {
	var out []time.Time
	for y := r.Start.Year(); y <= r.End.Year(); y++ {
		start := domain.YearStart(y)
		next := domain.YearStart(y + 1)
		for t := start; t.Before(next); t = t.AddDate(0, 0, stepDays) {
			if r.Contains(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

func (g *generator) qa() float64 {
	if g.rng.Float64() < g.opts.CloudFraction {
		return cloudyQA
	}
	return 0
}

func season(t time.Time) float64 {
	return math.Sin(2 * math.Pi * float64(t.YearDay()) / 365)
}

func (g *generator) vegetation(t time.Time, i int) (float64, float64) {
	shock := g.shocks[t.Year()][i]
	evi := 0.45 + 0.15*season(t) + 0.05*Coupling(g.opts.Shape, i)*shock + 0.002*g.rng.NormFloat64()
	return math.Round(evi / domain.Vegetation.ScaleFactor), g.qa()
}

func (g *generator) temperature(t time.Time, i int) (float64, float64) {
	shock := g.shocks[t.Year()][i]
	celsius := 18 + 8*season(t) + 2*shock + 0.1*g.rng.NormFloat64()
	return math.Round((celsius - domain.Temperature.Offset) / domain.Temperature.ScaleFactor), g.qa()
}

func (g *generator) landCover() catalog.Classification {
	n := g.opts.Shape.Len()
	values := make(catalog.Samples, n)
	for i := 0; i < n; i++ {
		class := float64(nonForest)
		if IsForest(g.opts.Shape, i) {
			class = float64(1 + i%5)
		}
		values[i] = &class
	}
	return catalog.Classification{
		Band:   domain.DefaultLandCover.Band,
		Epoch:  domain.DefaultLandCover.Epoch,
		Values: values,
	}
}
