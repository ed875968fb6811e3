package domain

import (
	"testing"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/stretchr/testify/require"
)

// pairShape is a two-pixel row covering x in [0, 2), y in [0, 1).
var pairShape = raster.Shape{Width: 2, Height: 1, OriginX: 0, OriginY: 1, PixelSize: 1}

var pairRegion = raster.Region{MinX: 0, MinY: 0, MaxX: 2, MaxY: 1}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func grid(t *testing.T, values ...float64) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(raster.Shape{Width: len(values), Height: 1, OriginY: 1, PixelSize: 1}, values, nil)
	require.NoError(t, err)
	return g
}

func maskedGrid(t *testing.T, values []float64, valid []bool) *raster.Grid {
	t.Helper()
	g, err := raster.NewGrid(raster.Shape{Width: len(values), Height: 1, OriginY: 1, PixelSize: 1}, values, valid)
	require.NoError(t, err)
	return g
}

func productScene(t *testing.T, at time.Time, p Product, data, qa *raster.Grid) raster.Image {
	t.Helper()
	im, err := raster.NewImage(at, map[string]*raster.Grid{p.Band: data, p.QABand: qa})
	require.NoError(t, err)
	return im
}

// eviScene builds a MOD13Q1-style scene with raw EVI integers and QA codes.
func eviScene(t *testing.T, at time.Time, raw, qa []float64) raster.Image {
	t.Helper()
	im, err := raster.NewImage(at, map[string]*raster.Grid{
		Vegetation.Band:   grid(t, raw...),
		Vegetation.QABand: grid(t, qa...),
	})
	require.NoError(t, err)
	return im
}

func collection(t *testing.T, images ...raster.Image) raster.Collection {
	t.Helper()
	c, err := raster.NewCollection(images...)
	require.NoError(t, err)
	return c
}

// series builds a one-pixel series from per-year values starting at year.
func series(t *testing.T, year int, values ...float64) Series {
	t.Helper()
	out := make(Series, 0, len(values))
	for i, v := range values {
		out = append(out, YearGrid{Year: year + i, Grid: grid(t, v).WithTime(YearStart(year + i))})
	}
	return out
}

func value(t *testing.T, g *raster.Grid, i int) float64 {
	t.Helper()
	v, ok := g.At(i)
	require.True(t, ok, "pixel %d is no-data", i)
	return v
}
