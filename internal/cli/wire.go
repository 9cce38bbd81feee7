package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/clausescan/internal/cache"
	"github.com/ppiankov/clausescan/internal/catalog"
	"github.com/ppiankov/clausescan/internal/document/tesseract"
	"github.com/ppiankov/clausescan/internal/llm"
	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/metrics"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
	"github.com/ppiankov/clausescan/internal/sink"
)

// app holds the components shared by every command
type app struct {
	cfg      *model.Config
	logger   logging.Logger
	catalog  model.Catalog
	metrics  *metrics.Collector
	pipeline *pipeline.Pipeline
	sink     sink.Sink // nil when no sink is configured

	closers []func() error
}

// newApp wires logging, the catalog, the extraction cache, OCR, the LLM
// summarizer and the result sinks around one pipeline
func newApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewCollector()}

	a.catalog, err = catalog.Resolve(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithMetrics(a.metrics),
	}

	c, err := a.buildCache(ctx)
	if err != nil {
		return nil, err
	}
	if c != nil {
		opts = append(opts, pipeline.WithCache(c))
	}

	if cfg.Extraction.OCREnabled {
		opts = append(opts, pipeline.WithOCR(tesseract.NewOCR(cfg.Extraction.OCRLanguages)))
		logger.Debug("OCR enabled", logging.String("tesseract", tesseract.Version()))
	}

	summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create LLM summarizer: %w", err)
	}
	if summarizer.IsEnabled() {
		opts = append(opts, pipeline.WithSummarizer(summarizer))
	}

	a.pipeline = pipeline.NewPipeline(cfg, a.catalog, opts...)

	a.sink, err = sink.FromConfig(ctx, cfg, logger.Named("sink"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure sinks: %w", err)
	}
	if a.sink != nil {
		a.closers = append(a.closers, a.sink.Close)
	}

	return a, nil
}

// buildCache returns the extraction cache: memory over Redis when an address
// is configured, memory over disk otherwise. Returns nil when disabled.
func (a *app) buildCache(ctx context.Context) (cache.Cache, error) {
	cfg := a.cfg.Cache
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.RedisAddr == "" {
		return cache.NewMemoryDiskCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL), nil
	}

	client, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.logger.Debug("using Redis extraction cache", logging.String("addr", cfg.RedisAddr))

	return cache.NewLayeredCache(
		cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute),
		cache.NewRedisCache(client, cfg.DiskTTL),
	), nil
}

// Close releases connections and flushes the logger
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", logging.Err(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// publish sends a result to the configured sinks; failures are only logged
func (a *app) publish(ctx context.Context, res *pipeline.Result) {
	if a.sink == nil {
		return
	}
	if err := a.sink.Publish(ctx, res); err != nil {
		a.logger.Warn("publish failed", logging.String("document", res.Document.Name), logging.Err(err))
	}
}

// publishingAnalyzer publishes every fresh analysis to the configured sinks
type publishingAnalyzer struct {
	app *app
}

func (p publishingAnalyzer) Analyze(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error) {
	res, err := p.app.pipeline.Analyze(ctx, up)
	if err != nil {
		return nil, err
	}
	p.app.publish(ctx, res)
	return res, nil
}
