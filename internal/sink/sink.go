// Package sink ships analysis results to optional external destinations.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/clausescan/internal/highlight"
	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
)

// Sink receives every successful analysis
type Sink interface {
	Publish(ctx context.Context, res *pipeline.Result) error
	Close() error
}

// Multi fans a result out to several sinks
type Multi []Sink

// Publish publishes to every sink and joins the failures
func (m Multi) Publish(ctx context.Context, res *pipeline.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the configured sinks. Returns nil when none are enabled.
func FromConfig(ctx context.Context, cfg *model.Config, logger logging.Logger) (Sink, error) {
	var sinks Multi

	if cfg.Sinks.MinIO.Endpoint != "" {
		store, err := NewMinIOStore(ctx, cfg.Sinks.MinIO, cfg.Output.HighlightPrefix, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}

	if len(cfg.Sinks.Kafka.Brokers) > 0 {
		sinks = append(sinks, NewKafkaPublisher(cfg.Sinks.Kafka, logger))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func reportJSON(res *pipeline.Result) ([]byte, error) {
	data, err := json.Marshal(res.Report())
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func previewHTML(res *pipeline.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := highlight.RenderPage(&buf, res.Document.Name, res.Document.FullText(), res.Spans); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}
