package sink

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
)

// MessageWriter abstracts kafka.Writer for testing
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes one report message per analyzed document,
// keyed by content identity so re-analyses of a file share a partition
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	logger logging.Logger
}

// NewKafkaPublisher creates a publisher for the configured brokers
func NewKafkaPublisher(cfg model.KafkaConfig, logger logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(writer, cfg.Topic, logger)
}

// NewKafkaPublisherWithWriter wraps an existing writer
func NewKafkaPublisherWithWriter(w MessageWriter, topic string, logger logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logger.Named("kafka")}
}

// Publish writes the report JSON
func (p *KafkaPublisher) Publish(ctx context.Context, res *pipeline.Result) error {
	value, err := reportJSON(res)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(res.Identity),
		Value: value,
		Headers: []kafka.Header{
			{Key: "run-id", Value: []byte(res.ID)},
			{Key: "document-type", Value: []byte(res.Document.Type)},
			{Key: "finding-count", Value: []byte(strconv.Itoa(len(res.Findings)))},
		},
		Time: res.AnalyzedAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", res.ID, err)
	}

	p.logger.Debug("report published",
		logging.String("topic", p.topic),
		logging.String("id", res.ID))
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
