// Command validate runs the pipeline over a catalog fixture and checks the
// integrity of the result: fixture shape, forest exclusivity, finite values,
// correlation symmetry, chart coverage and, for synthetic data, the sign of
// the correlation on each coupling half of the grid.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/scenes.json
//
// Without -fixture the default synthetic fixture is generated in memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/adapter/catalog"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/pipeline"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/couchcryptid/forest-stress-etl/internal/synth"
	"github.com/jonboulle/clockwork"
)

// correlationSlack allows for rounding when checking |r| <= 1.
const correlationSlack = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixturePath := flag.String("fixture", "", "catalog fixture written by genmock (default: generate in memory)")
	startYear := flag.Int("start-year", 0, "first analysis year (default: fixture's)")
	endYear := flag.Int("end-year", 0, "last analysis year (default: fixture's)")
	coupling := flag.Bool("coupling", true, "check the synthetic west/east coupling signs")
	flag.Parse()

	if code := run(*fixturePath, *startYear, *endYear, *coupling); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath string, startYear, endYear int, checkCoupling bool) int {
	// Fixed clock for a reproducible GeneratedAt.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Forest Stress Result Validation ===")
	fmt.Println()

	fx, err := loadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	if startYear == 0 || endYear == 0 {
		first, last, ok := fixtureYears(fx)
		if !ok {
			fmt.Fprintln(os.Stderr, "FATAL: fixture has no vegetation scenes")
			return 1
		}
		if startYear == 0 {
			startYear = first
		}
		if endYear == 0 {
			endYear = last
		}
	}

	opts := pipeline.Options{
		StartYear:   startYear,
		EndYear:     endYear,
		Region:      bounds(fx.Shape),
		Concurrency: 4,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(catalog.NewFixtureCatalog(fx), nil, opts, logger, observability.NewMetricsForTesting())

	res, err := p.RunOnce(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: pipeline run: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateFixture(fx),
		validateForestExclusivity(res),
		validateValues(res),
		validateSymmetry(res),
		validateChart(res),
	}
	if checkCoupling {
		phases = append(phases, validateCoupling(res, fx.Shape))
	}

	fmt.Println()
	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", ph.name, status)
	}

	s := res.Summarize()
	fmt.Println()
	fmt.Printf("Years %d-%d: %d pixels, %d forest, %d valid, nodata fraction %.3f\n",
		s.StartYear, s.EndYear, s.Pixels, s.ForestPixels, s.ValidPixels, s.NoDataFraction)

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadFixture(path string) (*catalog.Fixture, error) {
	if path == "" {
		return synth.Generate(synth.Default()), nil
	}
	return catalog.LoadFixture(path)
}

// fixtureYears returns the first and last complete vegetation years. The
// final scene year only holds the spill-over scenes of the last window.
func fixtureYears(fx *catalog.Fixture) (int, int, bool) {
	scenes := fx.Products[domain.Vegetation.ID]
	if len(scenes) == 0 {
		return 0, 0, false
	}
	first, last := scenes[0].Time.Year(), scenes[0].Time.Year()
	for _, s := range scenes {
		first = min(first, s.Time.Year())
		last = max(last, s.Time.Year())
	}
	if last > first {
		last--
	}
	return first, last, true
}

// bounds returns the region covering every pixel of shape.
func bounds(s raster.Shape) raster.Region {
	return raster.Region{
		MinX: s.OriginX,
		MinY: s.OriginY - float64(s.Height)*s.PixelSize,
		MaxX: s.OriginX + float64(s.Width)*s.PixelSize,
		MaxY: s.OriginY,
	}
}

// ── Phase 1: Fixture ──

func validateFixture(fx *catalog.Fixture) *phase {
	p := &phase{name: "Phase 1: Fixture shape"}

	n := fx.Shape.Len()
	for _, prod := range []domain.Product{domain.Vegetation, domain.Temperature} {
		scenes := fx.Products[prod.ID]
		if len(scenes) == 0 {
			p.errorf("%s: no scenes", prod.ID)
			continue
		}
		for i, s := range scenes {
			for _, band := range []string{prod.Band, prod.QABand} {
				samples, ok := s.Bands[band]
				if !ok {
					p.errorf("%s scene %d: missing band %s", prod.ID, i, band)
				} else if len(samples) != n {
					p.errorf("%s scene %d: band %s has %d samples, want %d", prod.ID, i, band, len(samples), n)
				}
			}
			if i > 0 && s.Time.Before(scenes[i-1].Time) {
				p.errorf("%s scene %d: out of time order", prod.ID, i)
			}
		}
	}

	cls := fx.Classifications[domain.DefaultLandCover.ProductID]
	if len(cls) == 0 {
		p.errorf("%s: no classification", domain.DefaultLandCover.ProductID)
	}
	for _, c := range cls {
		if len(c.Values) != n {
			p.errorf("classification %s: %d samples, want %d", c.Epoch.Format(time.DateOnly), len(c.Values), n)
		}
	}
	return p
}

// ── Phase 2: Forest exclusivity ──
// The final grid is valid exactly where the correlation is valid on forest.

func validateForestExclusivity(res *domain.Result) *phase {
	p := &phase{name: "Phase 2: Forest exclusivity"}

	for i := 0; i < res.Final.Len(); i++ {
		final, ok := res.Final.At(i)
		forest := res.ForestMask.IsValid(i)
		corr, corrOK := res.Correlation.At(i)

		switch {
		case ok && !forest:
			p.errorf("pixel %d: value %.4f outside forest", i, final)
		case forest && corrOK && !ok:
			p.errorf("pixel %d: forest correlation %.4f dropped", i, corr)
		case ok && final != corr:
			p.errorf("pixel %d: final %.4f differs from correlation %.4f", i, final, corr)
		}
	}
	return p
}

// ── Phase 3: Values ──

func validateValues(res *domain.Result) *phase {
	p := &phase{name: "Phase 3: Finite values"}

	for i, v := range res.Correlation.ValidValues() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.errorf("correlation value %d is not finite: %v", i, v)
		} else if math.Abs(v) > 1+correlationSlack {
			p.errorf("correlation value %d outside [-1, 1]: %v", i, v)
		}
	}
	for _, pr := range []domain.ProductResult{res.Vegetation, res.Temperature} {
		for _, yg := range pr.ZScores {
			for _, v := range yg.Grid.ValidValues() {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					p.errorf("%s %d: Z-score is not finite: %v", pr.Product.Variable, yg.Year, v)
					break
				}
			}
		}
	}
	return p
}

// ── Phase 4: Symmetry ──

func validateSymmetry(res *domain.Result) *phase {
	p := &phase{name: "Phase 4: Correlation symmetry"}

	swapped, err := domain.Correlate(res.Temperature.ZScores, res.Vegetation.ZScores)
	if err != nil {
		p.errorf("correlate swapped: %v", err)
		return p
	}
	for i := 0; i < swapped.Len(); i++ {
		a, aok := res.Correlation.At(i)
		b, bok := swapped.At(i)
		if aok != bok {
			p.errorf("pixel %d: validity differs when swapped", i)
		} else if aok && math.Abs(a-b) > correlationSlack {
			p.errorf("pixel %d: %.6f vs %.6f when swapped", i, a, b)
		}
	}
	return p
}

// ── Phase 5: Chart ──

func validateChart(res *domain.Result) *phase {
	p := &phase{name: "Phase 5: Annual chart coverage"}

	if len(res.Chart) != len(res.Years) {
		p.errorf("chart has %d rows for %d years", len(res.Chart), len(res.Years))
		return p
	}
	for i, row := range res.Chart {
		if row.Year != res.Years[i] {
			p.errorf("row %d: year %d, want %d", i, row.Year, res.Years[i])
		}
		if row.EVIZScore == nil || row.LSTZScore == nil {
			p.errorf("year %d: missing regional mean", row.Year)
		}
	}
	return p
}

// ── Phase 6: Coupling ──
// Synthetic scenes couple EVI negatively to LST in the west half of the grid
// and positively in the east half.

func validateCoupling(res *domain.Result, shape raster.Shape) *phase {
	p := &phase{name: "Phase 6: Synthetic coupling signs"}

	var west, east float64
	var nWest, nEast int
	for i := 0; i < res.Correlation.Len(); i++ {
		v, ok := res.Correlation.At(i)
		if !ok {
			continue
		}
		if synth.Coupling(shape, i) < 0 {
			west += v
			nWest++
		} else {
			east += v
			nEast++
		}
	}
	if nWest == 0 || nEast == 0 {
		p.errorf("no valid pixels in one half (west %d, east %d)", nWest, nEast)
		return p
	}
	if west >= 0 {
		p.errorf("west half mean %.4f, want negative", west/float64(nWest))
	}
	if east <= 0 {
		p.errorf("east half mean %.4f, want positive", east/float64(nEast))
	}
	return p
}
