//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/adapter/catalog"
	"github.com/couchcryptid/forest-stress-etl/internal/adapter/kafka"
	"github.com/couchcryptid/forest-stress-etl/internal/config"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/pipeline"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/couchcryptid/forest-stress-etl/internal/synth"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSinkTopic = "test-forest-stress"

var testShape = raster.Shape{Width: 4, Height: 2, OriginX: 0, OriginY: 2, PixelSize: 1}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("forest-stress-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// sinkMessage is a message read back from the sink topic.
type sinkMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return sinkMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

// TestPipelineEndToEnd runs the pipeline over a synthetic fixture with the
// Kafka writer as its sink and reads the published result back.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	at := time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	fx := synth.Generate(synth.Options{
		Shape:       testShape,
		StartYear:   2012,
		EndYear:     2015,
		Seed:        3,
		LSTStepDays: 16,
	})
	opts := pipeline.Options{
		StartYear:   2012,
		EndYear:     2015,
		Region:      raster.Region{MinX: 0, MinY: 0, MaxX: 4, MaxY: 2},
		Concurrency: 2,
	}
	p := pipeline.New(catalog.NewFixtureCatalog(fx), writer, opts, discardLogger(), observability.NewMetricsForTesting())

	res, err := p.RunOnce(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byKey := make(map[string]sinkMessage, 4)
	for len(byKey) < 4 {
		m := readSink(ctx, t, consumer)
		byKey[m.Key] = m
	}
	require.Contains(t, byKey, "summary")
	require.Contains(t, byKey, "annual")
	require.Contains(t, byKey, "grid:forest_correlation")
	require.Contains(t, byKey, "grid:correlation")

	for key, m := range byKey {
		assert.Equal(t, at.Format(time.RFC3339), m.Headers["generated_at"], key)
		assert.NotEmpty(t, m.Headers["kind"], key)
	}

	var summary domain.Summary
	require.NoError(t, json.Unmarshal(byKey["summary"].Value, &summary))
	assert.Equal(t, 2012, summary.StartYear)
	assert.Equal(t, 2015, summary.EndYear)
	assert.Equal(t, testShape.Len(), summary.Pixels)
	assert.Equal(t, res.Final.ValidCount(), summary.ValidPixels)

	var grid kafka.GridMessage
	require.NoError(t, json.Unmarshal(byKey["grid:forest_correlation"].Value, &grid))
	assert.Equal(t, testShape, grid.Shape)
	require.Len(t, grid.Values, testShape.Len())
	for i, v := range grid.Values {
		if !synth.IsForest(testShape, i) {
			assert.Nil(t, v, "non-forest pixel %d must be null", i)
		}
	}

	var annual kafka.AnnualMessage
	require.NoError(t, json.Unmarshal(byKey["annual"].Value, &annual))
	assert.Len(t, annual.Chart, 4)
}
