// Command genmock writes a synthetic catalog fixture for offline runs. The
// scenes come from the synth package, so a fixture generated here exercises
// the same cloud masking, compositing and correlation paths as live MODIS
// data.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/scenes.json \
//	  -width 8 -height 8 \
//	  -start-year 2012 -end-year 2022
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/forest-stress-etl/internal/adapter/catalog"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	def := synth.Default()

	out := flag.String("out", "", "output path for the catalog fixture")
	seed := flag.Int64("seed", def.Seed, "random seed")
	width := flag.Int("width", def.Shape.Width, "grid width in pixels")
	height := flag.Int("height", def.Shape.Height, "grid height in pixels")
	originX := flag.Float64("origin-x", def.Shape.OriginX, "longitude of the grid's west edge")
	originY := flag.Float64("origin-y", def.Shape.OriginY, "latitude of the grid's north edge")
	pixelSize := flag.Float64("pixel-size", def.Shape.PixelSize, "pixel size in degrees")
	startYear := flag.Int("start-year", def.StartYear, "first analysis year")
	endYear := flag.Int("end-year", def.EndYear, "last analysis year")
	clouds := flag.Float64("clouds", def.CloudFraction, "probability that a sample is flagged cloudy")
	lstStep := flag.Int("lst-step", def.LSTStepDays, "days between temperature scenes")
	noData := flag.String("nodata", "", "comma-separated pixel indices that never carry a sample")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *width <= 0 || *height <= 0 || *pixelSize <= 0 {
		return fmt.Errorf("grid dimensions must be positive")
	}
	if *endYear < *startYear {
		return fmt.Errorf("end year %d is before start year %d", *endYear, *startYear)
	}
	if *clouds < 0 || *clouds >= 1 {
		return fmt.Errorf("cloud fraction must be in [0, 1): %v", *clouds)
	}

	opts := def
	opts.Seed = *seed
	opts.Shape.Width, opts.Shape.Height = *width, *height
	opts.Shape.OriginX, opts.Shape.OriginY = *originX, *originY
	opts.Shape.PixelSize = *pixelSize
	opts.StartYear, opts.EndYear = *startYear, *endYear
	opts.CloudFraction = *clouds
	opts.LSTStepDays = *lstStep

	pixels, err := parsePixels(*noData, opts.Shape.Len())
	if err != nil {
		return err
	}
	opts.NoDataPixels = pixels

	fx := synth.Generate(opts)
	for _, p := range []domain.Product{domain.Vegetation, domain.Temperature} {
		log.Printf("%s: %d scenes", p.ID, len(fx.Products[p.ID]))
	}

	if err := writeFixture(*out, fx); err != nil {
		return err
	}
	log.Printf("wrote %s (%s)", *out, opts.Shape)
	return nil
}

func parsePixels(s string, n int) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("nodata pixel %q: %w", part, err)
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("nodata pixel %d outside grid of %d pixels", i, n)
		}
		out = append(out, i)
	}
	return out, nil
}

func writeFixture(path string, fx *catalog.Fixture) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := catalog.WriteFixture(f, fx); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
