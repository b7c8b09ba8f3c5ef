package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes output rows to a Kafka topic.
// It implements pipeline.TableLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadTable serializes every row of the table and publishes them in a single
// WriteMessages call. Rows are keyed by biosample accession so repeated runs
// land on the same partition.
func (w *Writer) LoadTable(ctx context.Context, table domain.OutputTable) error {
	if len(table.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(table.Rows))
	for i := range table.Rows {
		msg, err := serializeToMessage(table.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s rows: %w", table.Agent, err)
	}
	w.logger.Debug("rows published", "agent", table.Agent, "topic", w.writer.Topic, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an OutputRow into a Kafka message.
func serializeToMessage(row domain.OutputRow) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", row.Biosample, err)
	}
	return kafkago.Message{
		Key:   []byte(row.Biosample),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "agent", Value: []byte(row.Agent)},
			{Key: "country", Value: []byte(row.Country)},
		},
	}, nil
}
