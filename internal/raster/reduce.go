package raster

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer selects the per-pixel statistic applied across a sequence of grids.
type Reducer int

const (
	Median Reducer = iota
	Mean
	StdDev
	Sum
)

func (r Reducer) String() string {
	switch r {
	case Median:
		return "median"
	case Mean:
		return "mean"
	case StdDev:
		return "stddev"
	case Sum:
		return "sum"
	default:
		return fmt.Sprintf("reducer(%d)", int(r))
	}
}

// ParseReducer maps a reducer name to its Reducer.
func ParseReducer(s string) (Reducer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "median":
		return Median, nil
	case "mean":
		return Mean, nil
	case "stddev", "stddev_samp":
		return StdDev, nil
	case "sum":
		return Sum, nil
	default:
		return 0, fmt.Errorf("raster: unknown reducer %q", s)
	}
}

// minSamples is the number of valid samples a pixel needs before the
// reducer is defined there.
func (r Reducer) minSamples() int {
	if r == StdDev {
		return 2
	}
	return 1
}

// Reduce applies kind per pixel across grids, skipping no-data samples. A
// pixel is no-data in the result when fewer valid samples remain than the
// reducer needs. StdDev is the sample (N-1) standard deviation. With no
// input grids the result is an all-no-data grid of shape.
func Reduce(shape Shape, grids []*Grid, kind Reducer) (*Grid, error) {
	if len(grids) == 0 {
		return Empty(shape), nil
	}
	if err := CheckAligned("reduce "+kind.String(), grids...); err != nil {
		return nil, err
	}
	if grids[0].shape != shape {
		return nil, &AlignmentError{Op: "reduce " + kind.String(), Want: shape, Got: grids[0].shape}
	}

	out := alloc(shape)
	buf := make([]float64, 0, len(grids))
	for i := range out.values {
		buf = buf[:0]
		for _, g := range grids {
			if g.valid[i] {
				buf = append(buf, g.values[i])
			}
		}
		if len(buf) < kind.minSamples() {
			continue
		}
		v, err := reduceSamples(buf, kind)
		if err != nil {
			return nil, fmt.Errorf("reduce %s at pixel %d: %w", kind, i, err)
		}
		out.set(i, v, true)
	}
	return out, nil
}

func reduceSamples(buf []float64, kind Reducer) (float64, error) {
	switch kind {
	case Median:
		return stats.Median(buf)
	case Mean:
		return stat.Mean(buf, nil), nil
	case StdDev:
		return stat.StdDev(buf, nil), nil
	case Sum:
		return floats.Sum(buf), nil
	default:
		return 0, fmt.Errorf("unsupported reducer %s", kind)
	}
}
