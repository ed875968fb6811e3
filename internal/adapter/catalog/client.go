package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// Client implements domain.Catalog against the raster catalog HTTP API.
//
//	GET {base}/v1/products/{id}/scenes?start=&end=&bbox=
//	GET {base}/v1/products/{id}/classification?band=&epoch=&bbox=
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a catalog client. maxAttempts bounds the number of HTTP
// attempts per call, first try included.
func NewClient(baseURL string, timeout time.Duration, maxAttempts int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxAttempts: maxAttempts,
		backoff:     initialBackoff,
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}
}

// Query fetches the scenes of productID acquired within r.
func (c *Client) Query(ctx context.Context, productID string, r raster.DateRange, region raster.Region) (raster.Collection, error) {
	params := url.Values{
		"start": {r.Start.Format(time.DateOnly)},
		"end":   {r.End.Format(time.DateOnly)},
		"bbox":  {region.String()},
	}
	u := fmt.Sprintf("%s/v1/products/%s/scenes?%s", c.baseURL, url.PathEscape(productID), params.Encode())

	var resp queryResponse
	if err := c.get(ctx, "query", productID, u, &resp); err != nil {
		return raster.Collection{}, err
	}
	col, err := decodeCollection(resp.Shape, resp.Scenes)
	if err != nil {
		return raster.Collection{}, &domain.SourceUnavailableError{
			Op:        "query",
			ProductID: productID,
			Err:       fmt.Errorf("decode %s scenes: %w", productID, err),
		}
	}
	c.logger.Debug("catalog query", "product", productID, "range", r.String(), "scenes", col.Len())
	return col, nil
}

// Classification fetches the categorical raster of productID for epoch.
func (c *Client) Classification(ctx context.Context, productID, band string, epoch time.Time, region raster.Region) (*raster.Grid, error) {
	params := url.Values{
		"band":  {band},
		"epoch": {epoch.Format(time.DateOnly)},
		"bbox":  {region.String()},
	}
	u := fmt.Sprintf("%s/v1/products/%s/classification?%s", c.baseURL, url.PathEscape(productID), params.Encode())

	var resp classificationResponse
	if err := c.get(ctx, "classification", productID, u, &resp); err != nil {
		return nil, err
	}
	g, err := decodeGrid(resp.Shape, resp.Values)
	if err != nil {
		return nil, &domain.SourceUnavailableError{
			Op:        "classification",
			ProductID: productID,
			Err:       fmt.Errorf("decode %s classification: %w", productID, err),
		}
	}
	return g.WithBand(band).WithTime(epoch), nil
}

// get performs a GET with bounded retry and decodes the JSON body into out.
// Transport errors, 429 and 5xx are retried; other statuses fail at once.
func (c *Client) get(ctx context.Context, op, productID, fullURL string, out any) error {
	start := c.clock.Now()
	defer func() {
		c.metrics.CatalogDuration.WithLabelValues(op).Observe(c.clock.Since(start).Seconds())
	}()

	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.metrics.CatalogAttempts.WithLabelValues(op).Inc()
		retryable, err := c.do(ctx, fullURL, out)
		if err == nil {
			c.metrics.CatalogRequests.WithLabelValues(op, "success").Inc()
			return nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil || attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("catalog request failed, retrying",
			"op", op, "product", productID, "attempt", attempt, "backoff", backoff, "error", err)
		if !c.sleep(ctx, backoff) {
			lastErr = ctx.Err()
			break
		}
		backoff = min(backoff*2, maxBackoff)
	}

	c.metrics.CatalogRequests.WithLabelValues(op, "error").Inc()
	return &domain.SourceUnavailableError{Op: op, ProductID: productID, Err: lastErr}
}

func (c *Client) do(ctx context.Context, fullURL string, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retryableStatus(resp.StatusCode), &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

// StatusError is a non-200 catalog response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "catalog API error: status " + strconv.Itoa(e.Code) + ": " + e.Body
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
