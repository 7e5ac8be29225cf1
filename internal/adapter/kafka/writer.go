package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rain-alert-service/internal/config"
	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/monitor"
)

// VerdictEvent is the JSON payload written for each verdict change.
type VerdictEvent struct {
	ID              string             `json:"id"`
	Location        string             `json:"location"`
	Lat             float64            `json:"lat"`
	Lon             float64            `json:"lon"`
	Kind            domain.VerdictKind `json:"kind"`
	Level           domain.Level       `json:"level"`
	MinutesUntil    *int               `json:"minutes_until,omitempty"`
	PrecipitationMM *float64           `json:"precipitation_mm,omitempty"`
	ClassifiedAt    time.Time          `json:"classified_at"`
}

// messageWriter is the subset of *kafkago.Writer used to publish.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes verdict changes to a Kafka topic.
// It implements monitor.VerdictPublisher.
type Writer struct {
	writer        messageWriter
	soonThreshold int
	logger        *slog.Logger
}

// NewWriter creates a Kafka producer for the configured verdict topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaVerdictTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, soonThreshold: cfg.SoonThresholdMinutes, logger: logger}
}

// PublishVerdict writes one event for the snapshot, keyed by location so
// consumers see changes for a place in order.
func (w *Writer) PublishVerdict(ctx context.Context, snap monitor.Snapshot) error {
	msg, err := serializeToMessage(newVerdictEvent(snap, w.soonThreshold))
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write verdict event: %w", err)
	}
	w.logger.Debug("verdict event published", "id", snap.ID, "kind", snap.Verdict.Kind)
	return nil
}

// Close flushes pending messages and closes the underlying Kafka writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func newVerdictEvent(snap monitor.Snapshot, soonThreshold int) VerdictEvent {
	ev := VerdictEvent{
		ID:           snap.ID,
		Location:     snap.Location.Name,
		Lat:          snap.Location.Lat,
		Lon:          snap.Location.Lon,
		Kind:         snap.Verdict.Kind,
		Level:        snap.Verdict.Level(soonThreshold),
		ClassifiedAt: snap.ClassifiedAt.UTC(),
	}
	switch snap.Verdict.Kind {
	case domain.KindSoon:
		m := snap.Verdict.MinutesUntil
		ev.MinutesUntil = &m
	case domain.KindRaining:
		a := snap.Verdict.PrecipitationAmount
		ev.PrecipitationMM = &a
	}
	return ev
}

// serializeToMessage marshals a VerdictEvent into a Kafka message.
func serializeToMessage(event VerdictEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize verdict event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Location),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "verdict_kind", Value: []byte(event.Kind)},
			{Key: "classified_at", Value: []byte(event.ClassifiedAt.Format(time.RFC3339))},
		},
	}, nil
}
