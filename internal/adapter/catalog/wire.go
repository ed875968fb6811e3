package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Samples encodes a grid in row-major order; null marks a no-data pixel.
type Samples []*float64

// Scene is one acquisition on the wire.
type Scene struct {
	Time  time.Time          `json:"time"`
	Bands map[string]Samples `json:"bands"`
}

// Classification is a categorical raster on the wire.
type Classification struct {
	Band   string    `json:"band"`
	Epoch  time.Time `json:"epoch"`
	Values Samples   `json:"values"`
}

// queryResponse is the body of a scene query.
type queryResponse struct {
	Shape  raster.Shape `json:"shape"`
	Scenes []Scene      `json:"scenes"`
}

// classificationResponse is the body of a classification request.
type classificationResponse struct {
	Shape raster.Shape `json:"shape"`
	Classification
}

// Fixture is an offline catalog snapshot: every product's scenes and the
// land-cover classifications on one shared grid.
type Fixture struct {
	Shape           raster.Shape                `json:"shape"`
	Products        map[string][]Scene          `json:"products"`
	Classifications map[string][]Classification `json:"classifications"`
}

// EncodeGrid converts g into wire samples.
func EncodeGrid(g *raster.Grid) Samples {
	return g.Samples()
}

// EncodeImage converts a raster image into a wire scene.
func EncodeImage(im raster.Image) Scene {
	s := Scene{Time: im.Time, Bands: make(map[string]Samples, len(im.Bands))}
	for name, g := range im.Bands {
		s.Bands[name] = EncodeGrid(g)
	}
	return s
}

func decodeGrid(shape raster.Shape, samples Samples) (*raster.Grid, error) {
	values := make([]float64, len(samples))
	valid := make([]bool, len(samples))
	for i, v := range samples {
		if v != nil {
			values[i] = *v
			valid[i] = true
		}
	}
	return raster.NewGrid(shape, values, valid)
}

func decodeScene(shape raster.Shape, s Scene) (raster.Image, error) {
	bands := make(map[string]*raster.Grid, len(s.Bands))
	for name, samples := range s.Bands {
		g, err := decodeGrid(shape, samples)
		if err != nil {
			return raster.Image{}, fmt.Errorf("band %s at %s: %w", name, s.Time.Format(time.DateOnly), err)
		}
		bands[name] = g
	}
	return raster.NewImage(s.Time.UTC(), bands)
}

func decodeCollection(shape raster.Shape, scenes []Scene) (raster.Collection, error) {
	images := make([]raster.Image, 0, len(scenes))
	for _, s := range scenes {
		im, err := decodeScene(shape, s)
		if err != nil {
			return raster.Collection{}, err
		}
		images = append(images, im)
	}
	return raster.NewCollection(images...)
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	var fx Fixture
	if err := json.NewDecoder(f).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return &fx, nil
}

// WriteFixture encodes fx as indented JSON with scenes in time order.
func WriteFixture(w io.Writer, fx *Fixture) error {
	for id := range fx.Products {
		scenes := fx.Products[id]
		sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Time.Before(scenes[j].Time) })
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fx)
}
