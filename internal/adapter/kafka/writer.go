package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/config"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	kafkago "github.com/segmentio/kafka-go"
)

// Message kinds, carried in the "kind" header and as the key prefix.
const (
	KindSummary = "summary"
	KindAnnual  = "annual"
	KindGrid    = "grid"
)

// Writer produces result messages to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes a result into its messages and writes them in a single
// WriteMessages call. It returns the number of messages written.
func (w *Writer) Publish(ctx context.Context, r *domain.Result) (int, error) {
	msgs, err := resultMessages(r)
	if err != nil {
		return 0, err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write result messages: %w", err)
	}
	w.logger.Debug("result published", "messages", len(msgs), "topic", w.writer.Topic)
	return len(msgs), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// AnnualMessage carries the regional time series used by the reporting
// charts.
type AnnualMessage struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Chart       []domain.ChartRow    `json:"chart"`
	EVIAnomaly  []domain.AnnualValue `json:"evi_anomaly"`
	LSTAnomaly  []domain.AnnualValue `json:"lst_anomaly"`
}

// GridMessage carries one output raster. Values are row-major; null is
// no-data.
type GridMessage struct {
	Name        string       `json:"name"`
	GeneratedAt time.Time    `json:"generated_at"`
	Shape       raster.Shape `json:"shape"`
	Values      []*float64   `json:"values"`
}

// resultMessages builds the summary, the annual series and the two
// correlation grids of r.
func resultMessages(r *domain.Result) ([]kafkago.Message, error) {
	annual := AnnualMessage{
		GeneratedAt: r.GeneratedAt,
		Chart:       r.Chart,
		EVIAnomaly:  r.Vegetation.AnnualAnomaly,
		LSTAnomaly:  r.Temperature.AnnualAnomaly,
	}

	msgs := make([]kafkago.Message, 0, 4)
	for _, m := range []struct {
		kind, name string
		value      any
	}{
		{KindSummary, "", r.Summarize()},
		{KindAnnual, "", annual},
		{KindGrid, "forest_correlation", gridMessage("forest_correlation", r.Final, r.GeneratedAt)},
		{KindGrid, "correlation", gridMessage("correlation", r.Correlation, r.GeneratedAt)},
	} {
		msg, err := serializeToMessage(m.kind, m.name, m.value, r.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func gridMessage(name string, g *raster.Grid, at time.Time) GridMessage {
	return GridMessage{Name: name, GeneratedAt: at, Shape: g.Shape(), Values: g.Samples()}
}

// serializeToMessage marshals v into a Kafka message keyed by kind and name.
func serializeToMessage(kind, name string, v any, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s message: %w", kind, err)
	}
	key := kind
	if name != "" {
		key = kind + ":" + name
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
