package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/raster"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testShape = raster.Shape{Width: 2, Height: 1, OriginX: 0, OriginY: 1, PixelSize: 1}
	testNow   = time.Date(2026, time.March, 1, 6, 0, 0, 0, time.UTC)
)

func series(t *testing.T, values map[int][]float64) domain.Series {
	t.Helper()
	var s domain.Series
	for _, year := range []int{2012, 2013, 2014} {
		g, err := raster.NewGrid(testShape, values[year], nil)
		require.NoError(t, err)
		s = append(s, domain.YearGrid{Year: year, Grid: g})
	}
	return s
}

func testResult(t *testing.T) *domain.Result {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	years := []int{2012, 2013, 2014}
	baseline := raster.Filled(testShape, 0)

	veg, err := domain.NewProductResult(domain.Vegetation, baseline, series(t, map[int][]float64{
		2012: {1, 1}, 2013: {2, 3}, 2014: {3, 2},
	}), years)
	require.NoError(t, err)
	temp, err := domain.NewProductResult(domain.Temperature, baseline, series(t, map[int][]float64{
		2012: {3, 1}, 2013: {2, 2}, 2014: {1, 3},
	}), years)
	require.NoError(t, err)

	mask, err := raster.NewGrid(testShape, []float64{1, 0}, []bool{true, false})
	require.NoError(t, err)

	res, err := domain.Assemble(veg, temp, mask, years, raster.Region{MinX: 0, MinY: 0, MaxX: 2, MaxY: 1})
	require.NoError(t, err)
	return res
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestResultMessages(t *testing.T) {
	msgs, err := resultMessages(testResult(t))
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = string(m.Key)
		assert.Equal(t, testNow.Format(time.RFC3339), header(m, "generated_at"))
	}
	assert.Equal(t, []string{"summary", "annual", "grid:forest_correlation", "grid:correlation"}, keys)
	assert.Equal(t, KindSummary, header(msgs[0], "kind"))
	assert.Equal(t, KindAnnual, header(msgs[1], "kind"))
	assert.Equal(t, KindGrid, header(msgs[2], "kind"))
}

func TestResultMessages_Summary(t *testing.T) {
	msgs, err := resultMessages(testResult(t))
	require.NoError(t, err)

	var summary domain.Summary
	require.NoError(t, json.Unmarshal(msgs[0].Value, &summary))
	assert.Equal(t, 2012, summary.StartYear)
	assert.Equal(t, 2014, summary.EndYear)
	assert.Equal(t, 2, summary.Pixels)
	assert.Equal(t, 1, summary.ForestPixels)
	assert.True(t, summary.GeneratedAt.Equal(testNow))
}

func TestResultMessages_Annual(t *testing.T) {
	msgs, err := resultMessages(testResult(t))
	require.NoError(t, err)

	var annual AnnualMessage
	require.NoError(t, json.Unmarshal(msgs[1].Value, &annual))
	require.Len(t, annual.Chart, 3)
	assert.Equal(t, 2012, annual.Chart[0].Year)
	require.Len(t, annual.EVIAnomaly, 3)
	require.NotNil(t, annual.EVIAnomaly[0].Value)
	assert.InDelta(t, 1, *annual.EVIAnomaly[0].Value, 1e-9, "zero baseline: anomaly is the composite")
	assert.Len(t, annual.LSTAnomaly, 3)
}

func TestResultMessages_GridEncodesNoData(t *testing.T) {
	msgs, err := resultMessages(testResult(t))
	require.NoError(t, err)

	var grid GridMessage
	require.NoError(t, json.Unmarshal(msgs[2].Value, &grid))
	assert.Equal(t, "forest_correlation", grid.Name)
	assert.Equal(t, testShape, grid.Shape)
	require.Len(t, grid.Values, 2)
	assert.Nil(t, grid.Values[1], "non-forest pixel is null")
	assert.Contains(t, string(msgs[2].Value), `"values":[`)
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(KindSummary, "", map[string]int{"pixels": 4}, testNow)
	require.NoError(t, err)

	assert.Equal(t, []byte("summary"), msg.Key)
	assert.JSONEq(t, `{"pixels":4}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(testNow.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_Unencodable(t *testing.T) {
	_, err := serializeToMessage(KindGrid, "bad", make(chan int), testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize grid message")
}
