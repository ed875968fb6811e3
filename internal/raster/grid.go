package raster

import (
	"fmt"
	"math"
	"time"
)

// Shape describes the pixel grid a raster is sampled on. Origin is the
// top-left corner in CRS units; rows grow southwards.
type Shape struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	OriginX   float64 `json:"origin_x"`
	OriginY   float64 `json:"origin_y"`
	PixelSize float64 `json:"pixel_size"`
}

// Len returns the number of pixels.
func (s Shape) Len() int { return s.Width * s.Height }

// PixelCenter returns the CRS coordinates of the centre of pixel i.
func (s Shape) PixelCenter(i int) (x, y float64) {
	row, col := i/s.Width, i%s.Width
	x = s.OriginX + (float64(col)+0.5)*s.PixelSize
	y = s.OriginY - (float64(row)+0.5)*s.PixelSize
	return x, y
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d@(%g,%g)/%g", s.Width, s.Height, s.OriginX, s.OriginY, s.PixelSize)
}

func (s Shape) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("raster: invalid shape %s: width and height must be positive", s)
	}
	if s.PixelSize <= 0 {
		return fmt.Errorf("raster: invalid shape %s: pixel size must be positive", s)
	}
	return nil
}

// Grid is a single-band raster with a per-pixel validity mask. A Grid is
// never modified after construction; every operation returns a new Grid.
// Invalid (no-data) pixels always hold 0 in the value slice.
type Grid struct {
	shape  Shape
	values []float64
	valid  []bool
	time   time.Time
	band   string
}

// NewGrid copies values and valid into a new Grid. A nil valid slice marks
// every pixel valid. Non-finite samples become no-data.
func NewGrid(shape Shape, values []float64, valid []bool) (*Grid, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	n := shape.Len()
	if len(values) != n {
		return nil, fmt.Errorf("raster: %d values for shape %s (want %d)", len(values), shape, n)
	}
	if valid != nil && len(valid) != n {
		return nil, fmt.Errorf("raster: %d mask entries for shape %s (want %d)", len(valid), shape, n)
	}

	g := alloc(shape)
	for i, v := range values {
		ok := valid == nil || valid[i]
		g.set(i, v, ok)
	}
	return g, nil
}

// Empty returns a grid in which every pixel is no-data.
func Empty(shape Shape) *Grid {
	return alloc(shape)
}

// Filled returns a grid with every pixel valid and equal to v.
func Filled(shape Shape, v float64) *Grid {
	g := alloc(shape)
	for i := range g.values {
		g.set(i, v, true)
	}
	return g
}

func alloc(shape Shape) *Grid {
	n := shape.Len()
	return &Grid{
		shape:  shape,
		values: make([]float64, n),
		valid:  make([]bool, n),
	}
}

// set is only used while a grid is being built.
func (g *Grid) set(i int, v float64, ok bool) {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		g.values[i] = 0
		g.valid[i] = false
		return
	}
	g.values[i] = v
	g.valid[i] = true
}

func (g *Grid) Shape() Shape { return g.shape }
func (g *Grid) Len() int { return len(g.values) }
func (g *Grid) Time() time.Time { return g.time }
func (g *Grid) Band() string { return g.band }
func (g *Grid) IsValid(i int) bool { return g.valid[i] }

// At returns the sample at pixel i and whether it is valid.
func (g *Grid) At(i int) (float64, bool) {
	return g.values[i], g.valid[i]
}

// AtXY returns the sample at column x, row y.
func (g *Grid) AtXY(x, y int) (float64, bool) {
	return g.At(y*g.shape.Width + x)
}

// WithTime returns a copy of g stamped with t. Pixel storage is shared.
func (g *Grid) WithTime(t time.Time) *Grid {
	c := *g
	c.time = t
	return &c
}

// WithBand returns a copy of g labelled with band. Pixel storage is shared.
func (g *Grid) WithBand(band string) *Grid {
	c := *g
	c.band = band
	return &c
}

// ValidCount returns the number of valid pixels.
func (g *Grid) ValidCount() int {
	n := 0
	for _, ok := range g.valid {
		if ok {
			n++
		}
	}
	return n
}

// ValidValues returns the valid samples in pixel order.
func (g *Grid) ValidValues() []float64 {
	out := make([]float64, 0, len(g.values))
	for i, ok := range g.valid {
		if ok {
			out = append(out, g.values[i])
		}
	}
	return out
}

// Values returns a copy of the samples; no-data pixels read as 0.
func (g *Grid) Values() []float64 {
	return append([]float64(nil), g.values...)
}

// Samples returns the values with nil for no-data pixels.
func (g *Grid) Samples() []*float64 {
	out := make([]*float64, len(g.values))
	for i, ok := range g.valid {
		if ok {
			v := g.values[i]
			out[i] = &v
		}
	}
	return out
}

// Mask returns a copy of the validity mask.
func (g *Grid) Mask() []bool {
	return append([]bool(nil), g.valid...)
}

// Map applies fn to every valid pixel. Non-finite results become no-data.
func (g *Grid) Map(fn func(float64) float64) *Grid {
	out := g.derive()
	for i, ok := range g.valid {
		if ok {
			out.set(i, fn(g.values[i]), true)
		}
	}
	return out
}

// UpdateMask keeps a pixel valid only where it is valid in g and mask is
// valid and non-zero. Values are unchanged.
func (g *Grid) UpdateMask(mask *Grid) (*Grid, error) {
	if err := CheckAligned("update mask", g, mask); err != nil {
		return nil, err
	}
	out := g.derive()
	for i, ok := range g.valid {
		keep := ok && mask.valid[i] && mask.values[i] != 0
		out.set(i, g.values[i], keep)
	}
	return out, nil
}

// Clip marks every pixel whose centre lies outside r as no-data.
func (g *Grid) Clip(r Region) *Grid {
	out := g.derive()
	for i, ok := range g.valid {
		x, y := g.shape.PixelCenter(i)
		out.set(i, g.values[i], ok && r.Contains(x, y))
	}
	return out
}

// derive allocates an all-no-data grid with g's shape and metadata.
func (g *Grid) derive() *Grid {
	out := alloc(g.shape)
	out.time = g.time
	out.band = g.band
	return out
}

// Binary combines two aligned grids pixel by pixel. A pixel is no-data in the
// result when it is no-data in either operand or op yields a non-finite
// value. Metadata is taken from a.
func Binary(a, b *Grid, op func(x, y float64) float64) (*Grid, error) {
	if err := CheckAligned("binary op", a, b); err != nil {
		return nil, err
	}
	out := a.derive()
	for i := range a.values {
		if a.valid[i] && b.valid[i] {
			out.set(i, op(a.values[i], b.values[i]), true)
		}
	}
	return out, nil
}

// Sub returns a - b.
func Sub(a, b *Grid) (*Grid, error) {
	return Binary(a, b, func(x, y float64) float64 { return x - y })
}

// Div returns a / b; pixels where b is zero are no-data.
func Div(a, b *Grid) (*Grid, error) {
	return Binary(a, b, func(x, y float64) float64 {
		if y == 0 {
			return math.NaN()
		}
		return x / y
	})
}
