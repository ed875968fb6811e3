package raster

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is an axis-aligned bounding box in the grid's CRS
// (longitude/latitude for EPSG:4326).
type Region struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// ParseBBox parses "minX,minY,maxX,maxY".
func ParseBBox(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("parse bbox %q: want 4 comma-separated numbers", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Region{}, fmt.Errorf("parse bbox %q: %w", s, err)
		}
		v[i] = f
	}
	r := Region{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if r.MinX >= r.MaxX || r.MinY >= r.MaxY {
		return Region{}, fmt.Errorf("parse bbox %q: min must be less than max", s)
	}
	return r, nil
}

// Contains reports whether (x, y) lies inside r, edges inclusive.
func (r Region) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// String renders r in the same form ParseBBox accepts.
func (r Region) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", r.MinX, r.MinY, r.MaxX, r.MaxY)
}
