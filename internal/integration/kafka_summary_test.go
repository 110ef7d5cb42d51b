//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dengue-weekly-etl/internal/adapter/kafka"
	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

const testSummaryTopic = "test-weekly-summary"

// publishedReading holds a deserialized message read from the summary topic.
type publishedReading struct {
	Key     string
	Headers map[string]string
	Body    struct {
		RunID    string                 `json:"run_id"`
		Period   string                 `json:"period"`
		Station  string                 `json:"station"`
		Fallback bool                   `json:"fallback"`
		Reading  domain.DistrictReading `json:"reading"`
		Weather  map[string]*float64    `json:"weather"`
	}
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedReading {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from summary topic")

	var pr publishedReading
	pr.Key = string(msg.Key)
	pr.Headers = make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		pr.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &pr.Body), "unmarshal summary message")
	return pr
}

// TestSummaryWriterPublishesEveryReading publishes a summary through the Kafka sink
// and reads each reading back with its shared weekly weather.
func TestSummaryWriterPublishesEveryReading(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaSummaryTopic: testSummaryTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	summary := domain.WeeklySummary{
		RunID:       "run-integration",
		GeneratedAt: time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC),
		Period:      domain.Period{Year: 2025, Month: time.November},
		Station:     "467410",
		Fallback:    true,
		Weather: domain.WeatherAggregate{
			Columns: []string{"StnPres", "Temperature", "UVI Max"},
			Means:   []float64{1010.25, 24.5, math.NaN()},
		},
		Readings: []domain.DistrictReading{
			{Code: "67000010", District: "新營區", PositivityRate: "0.10", EggCount: "120"},
			{Code: "67000320", District: "東區", PositivityRate: "0.25", EggCount: "300"},
			{Code: "67000370", District: "安平區", PositivityRate: "0.00", EggCount: "0"},
		},
	}
	require.NoError(t, writer.Write(ctx, summary))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-summary-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byCode := map[string]publishedReading{}
	for range summary.Readings {
		pr := readPublished(ctx, t, consumer)
		byCode[pr.Key] = pr
	}

	require.Len(t, byCode, len(summary.Readings))
	for _, rd := range summary.Readings {
		pr, ok := byCode[rd.Code]
		require.True(t, ok, "missing reading for %s", rd.Code)

		assert.Equal(t, "2025-11", pr.Headers["period"])
		assert.Equal(t, "467410", pr.Headers["station"])
		assert.Equal(t, "run-integration", pr.Headers["run_id"])

		assert.Equal(t, rd, pr.Body.Reading)
		assert.True(t, pr.Body.Fallback)
		require.NotNil(t, pr.Body.Weather["StnPres"])
		assert.InDelta(t, 1010.25, *pr.Body.Weather["StnPres"], 1e-9)
		assert.Nil(t, pr.Body.Weather["UVI Max"], "NaN mean should be null")
	}
}

// TestSummaryWriterSkipsEmptySummary verifies nothing reaches the topic when a
// summary has no readings.
func TestSummaryWriterSkipsEmptySummary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	writer := kafka.NewWriter(&config.Config{
		KafkaBrokers:      []string{broker},
		KafkaSummaryTopic: testSummaryTopic,
	}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.Write(ctx, domain.WeeklySummary{Station: "467410"}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-empty-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message on summary topic")
}
