package domain

import (
	"fmt"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// CloudMask masks every band of im where the product's QA bits are not all
// zero, or where the QA band itself is no-data. Existing masks are kept;
// values are untouched.
func CloudMask(im raster.Image, p Product) (raster.Image, error) {
	qa, err := im.Band(p.QABand)
	if err != nil {
		return raster.Image{}, fmt.Errorf("cloud mask %s: %w", p.Variable, err)
	}

	clearMask := ClearSky(qa, p.QAMask)
	bands := make(map[string]*raster.Grid, len(im.Bands))
	for name, g := range im.Bands {
		masked, err := g.UpdateMask(clearMask)
		if err != nil {
			return raster.Image{}, fmt.Errorf("cloud mask %s band %s: %w", p.Variable, name, err)
		}
		bands[name] = masked
	}
	return raster.NewImage(im.Time, bands)
}

// ClearSky returns a mask grid that is 1 where (qa & bits) == 0 and no-data
// elsewhere.
func ClearSky(qa *raster.Grid, bits uint32) *raster.Grid {
	n := qa.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	for i := range n {
		v, ok := qa.At(i)
		if !ok {
			continue
		}
		if uint32(int64(v))&bits == 0 {
			values[i] = 1
			valid[i] = true
		}
	}
	g, _ := raster.NewGrid(qa.Shape(), values, valid) //nolint:errcheck // shape and lengths come from qa
	return g
}
