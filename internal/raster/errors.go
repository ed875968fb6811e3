package raster

import (
	"errors"
	"fmt"
)

// ErrNilGrid is returned when an operation receives a nil grid.
var ErrNilGrid = errors.New("raster: nil grid")

// AlignmentError reports grids that cannot be combined pixel by pixel
// because their shapes differ. Grids are never reprojected or cropped to fit.
type AlignmentError struct {
	Op   string
	Want Shape
	Got  Shape
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("raster: %s: misaligned grids: want %s, got %s", e.Op, e.Want, e.Got)
}

// CheckAligned returns an *AlignmentError if any grid's shape differs from
// the first one.
func CheckAligned(op string, grids ...*Grid) error {
	if len(grids) == 0 {
		return nil
	}
	for _, g := range grids {
		if g == nil {
			return fmt.Errorf("%s: %w", op, ErrNilGrid)
		}
	}
	want := grids[0].shape
	for _, g := range grids[1:] {
		if g.shape != want {
			return &AlignmentError{Op: op, Want: want, Got: g.shape}
		}
	}
	return nil
}
