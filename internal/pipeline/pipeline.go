package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"golang.org/x/sync/errgroup"
)

// ErrNoScenes is returned when the catalog has no scenes at all for a
// product, so not even the output grid is known.
var ErrNoScenes = errors.New("catalog returned no scenes")

// Sink publishes a finished result downstream and reports how many messages
// it wrote.
type Sink interface {
	Publish(ctx context.Context, r *domain.Result) (int, error)
}

// Pipeline orchestrates the extract-transform-load run.
type Pipeline struct {
	catalog domain.Catalog
	sink    Sink
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	latest  atomic.Pointer[domain.Result]
}

// New creates a Pipeline. sink may be nil, in which case results are only
// kept in memory.
func New(catalog domain.Catalog, sink Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		sink:    sink,
		opts:    opts.withDefaults(),
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Latest returns the result of the last successful run, or nil.
func (p *Pipeline) Latest() *domain.Result {
	return p.latest.Load()
}

// Run executes one run, or with a RunInterval keeps running until the
// context is cancelled. Failed scheduled runs are retried with backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"start_year", p.opts.StartYear,
		"end_year", p.opts.EndYear,
		"region", p.opts.Region.String(),
		"run_interval", p.opts.RunInterval,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		_, err := p.RunOnce(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.opts.RunInterval
		if err != nil {
			p.logger.Error("run failed", "error", err)
			if p.opts.RunInterval == 0 {
				return err
			}
			wait = backoff
			backoff = nextBackoff(backoff, p.opts.RunInterval)
		} else {
			backoff = initialBackoff
			if p.opts.RunInterval == 0 {
				return nil
			}
		}

		if !sleepWithContext(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce extracts, transforms and loads one result.
func (p *Pipeline) RunOnce(ctx context.Context) (*domain.Result, error) {
	start := time.Now()
	p.metrics.RunsTotal.Inc()

	res, err := p.compute(ctx)
	if err != nil {
		p.metrics.RunFailures.Inc()
		return nil, err
	}

	p.latest.Store(res)
	p.ready.Store(true)

	summary := res.Summarize()
	p.metrics.NoDataFraction.Set(summary.NoDataFraction)
	p.metrics.LastSuccess.Set(float64(res.GeneratedAt.Unix()))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("run complete",
		"duration", time.Since(start),
		"forest_pixels", summary.ForestPixels,
		"valid_pixels", summary.ValidPixels,
		"nodata_fraction", summary.NoDataFraction,
	)

	if p.sink != nil {
		loadStart := time.Now()
		n, err := p.sink.Publish(ctx, res)
		if err != nil {
			p.metrics.RunFailures.Inc()
			return res, fmt.Errorf("publish result: %w", err)
		}
		p.metrics.MessagesProduced.Add(float64(n))
		p.observeStage("all", "load", loadStart)
	}
	return res, nil
}

func (p *Pipeline) compute(ctx context.Context) (*domain.Result, error) {
	years := domain.YearRange(p.opts.StartYear, p.opts.EndYear)

	var (
		veg, temp domain.ProductResult
		forest    *raster.Grid
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		veg, err = p.buildProduct(gctx, p.opts.Vegetation, years)
		return err
	})
	g.Go(func() error {
		var err error
		temp, err = p.buildProduct(gctx, p.opts.Temperature, years)
		return err
	})
	g.Go(func() error {
		var err error
		forest, err = p.forestMask(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := domain.Assemble(veg, temp, forest, years, p.opts.Region)
	if err != nil {
		return nil, fmt.Errorf("assemble result: %w", err)
	}
	p.observeStage("all", "correlate", start)
	return res, nil
}

// buildProduct runs one variable from catalog query to Z-scores. The
// baseline is complete before any year is composited, and normalization
// waits for every year.
func (p *Pipeline) buildProduct(ctx context.Context, prod domain.Product, years []int) (domain.ProductResult, error) {
	logger := p.logger.With("product", prod.Variable)

	start := time.Now()
	qr := domain.QueryRange(p.opts.StartYear, p.opts.EndYear, p.opts.IntervalDays, p.opts.Baseline)
	col, err := p.catalog.Query(ctx, prod.ID, qr, p.opts.Region)
	if err != nil {
		return domain.ProductResult{}, err
	}
	shape, ok := col.Shape()
	if !ok {
		return domain.ProductResult{}, fmt.Errorf("%s %s: %w", prod.ID, qr, ErrNoScenes)
	}
	p.observeStage(prod.Variable, "extract", start)
	logger.Debug("scenes extracted", "scenes", col.Len(), "range", qr.String(), "shape", shape.String())

	b := domain.CompositeBuilder{Shape: shape, Region: p.opts.Region, IntervalDays: p.opts.IntervalDays}

	start = time.Now()
	baseline, err := b.Baseline(col, prod, p.opts.Baseline)
	if err != nil {
		return domain.ProductResult{}, err
	}
	p.observeStage(prod.Variable, "baseline", start)

	start = time.Now()
	composites := make(domain.Series, len(years))
	yg, yctx := errgroup.WithContext(ctx)
	yg.SetLimit(p.opts.Concurrency)
	for i, year := range years {
		yg.Go(func() error {
			if err := yctx.Err(); err != nil {
				return err
			}
			grid, err := b.Yearly(col, prod, domain.YearStart(year))
			if err != nil {
				return err
			}
			composites[i] = domain.YearGrid{Year: year, Grid: grid}
			logger.Debug("yearly composite built", "year", year, "valid_pixels", grid.ValidCount())
			return nil
		})
	}
	if err := yg.Wait(); err != nil {
		return domain.ProductResult{}, err
	}
	p.observeStage(prod.Variable, "composite", start)

	start = time.Now()
	res, err := domain.NewProductResult(prod, baseline, composites, years)
	if err != nil {
		return domain.ProductResult{}, err
	}
	p.observeStage(prod.Variable, "normalize", start)
	return res, nil
}

func (p *Pipeline) forestMask(ctx context.Context) (*raster.Grid, error) {
	start := time.Now()
	lc := p.opts.LandCover
	class, err := p.catalog.Classification(ctx, lc.ProductID, lc.Band, lc.Epoch, p.opts.Region)
	if err != nil {
		return nil, err
	}
	p.observeStage("all", "forest_mask", start)
	return domain.ForestMask(class, lc.Classes), nil
}

func (p *Pipeline) observeStage(product, stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(product, stage).Observe(time.Since(start).Seconds())
}

const initialBackoff = time.Second

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
