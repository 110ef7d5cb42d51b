// Package kafka publishes weekly summaries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/dengue-weekly-etl/internal/config"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Writer produces one message per district reading.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// summaryRecord is the message value: one reading with the shared weekly weather.
type summaryRecord struct {
	RunID       string                 `json:"run_id"`
	Period      string                 `json:"period"`
	Station     string                 `json:"station"`
	Fallback    bool                   `json:"fallback"`
	GeneratedAt time.Time              `json:"generated_at"`
	Reading     domain.DistrictReading `json:"reading"`
	Weather     map[string]*float64    `json:"weather"`
}

// Write publishes every reading of the summary in a single WriteMessages call.
func (w *Writer) Write(ctx context.Context, summary domain.WeeklySummary) error {
	if len(summary.Readings) == 0 {
		return nil
	}
	msgs, err := serializeToMessages(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish weekly summary: %w", err)
	}
	w.logger.Info("weekly summary published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Name() string { return "kafka" }

func (w *Writer) Close() error {
	return w.writer.Close()
}

// weatherValues maps column to mean; NaN means are encoded as null.
func weatherValues(agg domain.WeatherAggregate) map[string]*float64 {
	out := make(map[string]*float64, len(agg.Columns))
	for i, name := range agg.Columns {
		if math.IsNaN(agg.Means[i]) {
			out[name] = nil
			continue
		}
		v := agg.Means[i]
		out[name] = &v
	}
	return out
}

// serializeToMessages keys each message by district code so a district's history
// stays on one partition.
func serializeToMessages(summary domain.WeeklySummary) ([]kafkago.Message, error) {
	weather := weatherValues(summary.Weather)
	msgs := make([]kafkago.Message, len(summary.Readings))
	for i, rd := range summary.Readings {
		data, err := json.Marshal(summaryRecord{
			RunID:       summary.RunID,
			Period:      summary.Period.String(),
			Station:     summary.Station,
			Fallback:    summary.Fallback,
			GeneratedAt: summary.GeneratedAt,
			Reading:     rd,
			Weather:     weather,
		})
		if err != nil {
			return nil, fmt.Errorf("serialize reading %s: %w", rd.Code, err)
		}
		msgs[i] = kafkago.Message{
			Key:   []byte(rd.Code),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "period", Value: []byte(summary.Period.String())},
				{Key: "station", Value: []byte(summary.Station)},
				{Key: "run_id", Value: []byte(summary.RunID)},
			},
		}
	}
	return msgs, nil
}
