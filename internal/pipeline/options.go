package pipeline

import (
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/config"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
)

// Options are the analysis parameters of a run.
type Options struct {
	StartYear    int
	EndYear      int
	Region       raster.Region
	IntervalDays int

	// Baseline defaults to domain.DefaultBaselineRange(StartYear, EndYear).
	Baseline raster.DateRange

	LandCover   domain.LandCover
	Vegetation  domain.Product
	Temperature domain.Product

	// Concurrency bounds the years composited in parallel per product.
	Concurrency int

	// RunInterval is the wait between scheduled runs; zero runs once.
	RunInterval time.Duration
}

// OptionsFromConfig maps service configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	lc := domain.DefaultLandCover
	lc.Epoch = cfg.LandCoverEpoch
	lc.Classes = cfg.ForestClasses

	return Options{
		StartYear:    cfg.StartYear,
		EndYear:      cfg.EndYear,
		Region:       cfg.Region,
		IntervalDays: cfg.IntervalDays,
		LandCover:    lc,
		Concurrency:  cfg.WorkerConcurrency,
		RunInterval:  cfg.RunInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.IntervalDays <= 0 {
		o.IntervalDays = domain.DefaultIntervalDays
	}
	if o.Baseline.Start.IsZero() && o.Baseline.End.IsZero() {
		o.Baseline = domain.DefaultBaselineRange(o.StartYear, o.EndYear)
	}
	if o.LandCover.ProductID == "" {
		o.LandCover = domain.DefaultLandCover
	}
	if o.Vegetation.ID == "" {
		o.Vegetation = domain.Vegetation
	}
	if o.Temperature.ID == "" {
		o.Temperature = domain.Temperature
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	return o
}
