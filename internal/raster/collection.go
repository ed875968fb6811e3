package raster

import (
	"fmt"
	"sort"
	"time"
)

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// Image is one acquisition: a timestamp and a set of aligned bands.
type Image struct {
	Time  time.Time
	Bands map[string]*Grid
}

// NewImage checks that every band shares one shape and stamps each band
// with t.
func NewImage(t time.Time, bands map[string]*Grid) (Image, error) {
	if len(bands) == 0 {
		return Image{}, fmt.Errorf("raster: image at %s has no bands", t.Format(time.RFC3339))
	}
	grids := make([]*Grid, 0, len(bands))
	for _, name := range sortedBandNames(bands) {
		grids = append(grids, bands[name])
	}
	if err := CheckAligned("new image", grids...); err != nil {
		return Image{}, err
	}
	out := make(map[string]*Grid, len(bands))
	for name, g := range bands {
		out[name] = g.WithTime(t).WithBand(name)
	}
	return Image{Time: t, Bands: out}, nil
}

// Band returns the named band.
func (im Image) Band(name string) (*Grid, error) {
	g, ok := im.Bands[name]
	if !ok {
		return nil, fmt.Errorf("raster: image at %s has no band %q", im.Time.Format(time.RFC3339), name)
	}
	return g, nil
}

// Shape returns the shape shared by the image's bands.
func (im Image) Shape() Shape {
	for _, g := range im.Bands {
		return g.shape
	}
	return Shape{}
}

// Collection is an ordered sequence of aligned images. Transforms return a
// new Collection and never modify the receiver.
type Collection struct {
	images []Image
}

// NewCollection validates that all images share a shape.
func NewCollection(images ...Image) (Collection, error) {
	if len(images) == 0 {
		return Collection{}, nil
	}
	want := images[0].Shape()
	for _, im := range images[1:] {
		if got := im.Shape(); got != want {
			return Collection{}, &AlignmentError{Op: "new collection", Want: want, Got: got}
		}
	}
	return Collection{images: append([]Image(nil), images...)}, nil
}

func (c Collection) Len() int { return len(c.images) }

// Images returns a copy of the image list.
func (c Collection) Images() []Image {
	return append([]Image(nil), c.images...)
}

// Shape returns the collection's shape and false when it is empty.
func (c Collection) Shape() (Shape, bool) {
	if len(c.images) == 0 {
		return Shape{}, false
	}
	return c.images[0].Shape(), true
}

// FilterDate keeps images whose timestamp falls in r. Insertion order of the
// kept images is preserved.
func (c Collection) FilterDate(r DateRange) Collection {
	out := make([]Image, 0, len(c.images))
	for _, im := range c.images {
		if r.Contains(im.Time) {
			out = append(out, im)
		}
	}
	return Collection{images: out}
}

// Map applies fn to every image.
func (c Collection) Map(fn func(Image) (Image, error)) (Collection, error) {
	out := make([]Image, 0, len(c.images))
	for _, im := range c.images {
		mapped, err := fn(im)
		if err != nil {
			return Collection{}, err
		}
		out = append(out, mapped)
	}
	return NewCollection(out...)
}

// Sorted returns the images ordered by timestamp.
func (c Collection) Sorted() Collection {
	out := c.Images()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return Collection{images: out}
}

// Select returns the named band of every image.
func (c Collection) Select(band string) ([]*Grid, error) {
	out := make([]*Grid, 0, len(c.images))
	for _, im := range c.images {
		g, err := im.Band(band)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// Reduce selects band from every image and reduces across time. An empty
// collection reduces to an all-no-data grid of the given shape.
func (c Collection) Reduce(shape Shape, band string, kind Reducer) (*Grid, error) {
	grids, err := c.Select(band)
	if err != nil {
		return nil, err
	}
	g, err := Reduce(shape, grids, kind)
	if err != nil {
		return nil, err
	}
	return g.WithBand(band), nil
}

func sortedBandNames(bands map[string]*Grid) []string {
	names := make([]string, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
