package raster

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	grids := []*Grid{
		mustGrid(t, []float64{1, 10, 0, 5}, []bool{true, true, false, true}),
		mustGrid(t, []float64{3, 20, 0, 0}, []bool{true, true, false, false}),
		mustGrid(t, []float64{2, 60, 0, 0}, []bool{true, false, false, false}),
	}

	tests := []struct {
		kind  Reducer
		want  []float64
		valid []bool
	}{
		{Median, []float64{2, 15, 0, 5}, []bool{true, true, false, true}},
		{Mean, []float64{2, 15, 0, 5}, []bool{true, true, false, true}},
		{Sum, []float64{6, 30, 0, 5}, []bool{true, true, false, true}},
		{StdDev, []float64{1, math.Sqrt(50), 0, 0}, []bool{true, true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			out, err := Reduce(testShape, grids, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, out.Mask())
			assert.InDeltaSlice(t, tt.want, out.Values(), 1e-12)
		})
	}
}

func TestReduce_EmptyInput(t *testing.T) {
	out, err := Reduce(testShape, nil, Median)
	require.NoError(t, err)
	assert.Equal(t, 0, out.ValidCount())
	assert.Equal(t, testShape, out.Shape())
}

func TestReduce_Misaligned(t *testing.T) {
	other := Filled(Shape{Width: 1, Height: 4, PixelSize: 1}, 1)
	_, err := Reduce(testShape, []*Grid{Filled(testShape, 1), other}, Mean)
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)

	_, err = Reduce(testShape, []*Grid{other}, Mean)
	require.ErrorAs(t, err, &alignErr)
}

func TestParseReducer(t *testing.T) {
	for _, kind := range []Reducer{Median, Mean, StdDev, Sum} {
		got, err := ParseReducer(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	_, err := ParseReducer("mode")
	assert.Error(t, err)
}

func TestCollection(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2015, 1, d, 0, 0, 0, 0, time.UTC) }
	img := func(d int, v float64) Image {
		im, err := NewImage(day(d), map[string]*Grid{"EVI": Filled(testShape, v)})
		require.NoError(t, err)
		return im
	}

	// Deliberately out of order.
	c, err := NewCollection(img(20, 3), img(1, 1), img(10, 2), img(17, 9))
	require.NoError(t, err)

	t.Run("date filter is half open and order independent", func(t *testing.T) {
		f := c.FilterDate(DateRange{Start: day(1), End: day(17)})
		require.Equal(t, 2, f.Len())
		assert.Equal(t, day(1), f.Images()[0].Time)
		assert.Equal(t, day(10), f.Images()[1].Time)
	})

	t.Run("sorted", func(t *testing.T) {
		s := c.Sorted()
		assert.Equal(t, day(1), s.Images()[0].Time)
		assert.Equal(t, day(20), s.Images()[3].Time)
		assert.Equal(t, day(20), c.Images()[0].Time, "receiver is unchanged")
	})

	t.Run("reduce band", func(t *testing.T) {
		out, err := c.Reduce(testShape, "EVI", Median)
		require.NoError(t, err)
		v, ok := out.At(0)
		require.True(t, ok)
		assert.Equal(t, 2.5, v)
		assert.Equal(t, "EVI", out.Band())
	})

	t.Run("missing band", func(t *testing.T) {
		_, err := c.Reduce(testShape, "NDVI", Median)
		assert.Error(t, err)
	})

	t.Run("image bands carry timestamp", func(t *testing.T) {
		g, err := c.Images()[0].Band("EVI")
		require.NoError(t, err)
		assert.Equal(t, day(20), g.Time())
	})
}

func TestNewCollection_Misaligned(t *testing.T) {
	a, err := NewImage(time.Now(), map[string]*Grid{"b": Filled(testShape, 1)})
	require.NoError(t, err)
	b, err := NewImage(time.Now(), map[string]*Grid{"b": Filled(Shape{Width: 3, Height: 3, PixelSize: 1}, 1)})
	require.NoError(t, err)

	_, err = NewCollection(a, b)
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
}

func TestNewImage_MisalignedBands(t *testing.T) {
	_, err := NewImage(time.Now(), map[string]*Grid{
		"a": Filled(testShape, 1),
		"b": Filled(Shape{Width: 3, Height: 3, PixelSize: 1}, 1),
	})
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
}
