package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
)

// Loader resolves a batch source (file path or URL) into an upload
type Loader interface {
	Load(ctx context.Context, source string) (pipeline.Upload, error)
}

// Publisher receives every successful analysis, e.g. an artifact store
type Publisher interface {
	Publish(ctx context.Context, res *pipeline.Result) error
}

// SourceLoader reads local files and fetches URLs, honoring per-host rate
// limits and robots.txt crawl delays
type SourceLoader struct {
	fetcher  *pipeline.Fetcher
	limiter  *Limiter
	maxBytes int64
}

// NewSourceLoader creates a loader; limiter may be nil
func NewSourceLoader(fetcher *pipeline.Fetcher, limiter *Limiter, maxBytes int64) *SourceLoader {
	return &SourceLoader{fetcher: fetcher, limiter: limiter, maxBytes: maxBytes}
}

// Load returns the upload for one source
func (l *SourceLoader) Load(ctx context.Context, source string) (pipeline.Upload, error) {
	if !pipeline.IsURL(source) {
		return readUpload(source, l.maxBytes)
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx, source, l.crawlDelay(ctx, source)); err != nil {
			return pipeline.Upload{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	dl, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return pipeline.Upload{}, err
	}
	return dl.Upload(), nil
}

func (l *SourceLoader) crawlDelay(ctx context.Context, source string) time.Duration {
	robots := l.fetcher.Robots()
	if robots == nil {
		return 0
	}
	_, d, err := robots.CanFetch(ctx, source)
	if err != nil {
		return 0
	}
	return d
}

func readUpload(path string, maxBytes int64) (pipeline.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("open document: %w", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return pipeline.Upload{}, fmt.Errorf("%s: %w: %d bytes exceeds %d", path, model.ErrTooLarge, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("read document: %w", err)
	}
	return pipeline.Upload{Name: filepath.Base(path), Data: data}, nil
}

// DocumentJob analyzes one batch source
type DocumentJob struct {
	Index     int
	Source    string
	Loader    Loader
	Analyzer  pipeline.Analyzer
	Publisher Publisher
}

// Execute loads, analyzes and publishes the document
func (j *DocumentJob) Execute(ctx context.Context) Result {
	out := &DocumentResult{Index: j.Index, Source: j.Source}

	up, err := j.Loader.Load(ctx, j.Source)
	if err != nil {
		out.Error = err
		return out
	}

	res, err := j.Analyzer.Analyze(ctx, up)
	if err != nil {
		out.Error = err
		return out
	}
	out.Result = res

	if j.Publisher != nil {
		out.PublishError = j.Publisher.Publish(ctx, res)
	}
	return out
}

// DocumentResult is the outcome of one batch source
type DocumentResult struct {
	Index        int
	Source       string
	Result       *pipeline.Result
	Error        error
	PublishError error // Publishing failures never fail the document
}

// Err returns the analysis error
func (r *DocumentResult) Err() error {
	return r.Error
}

// BatchProcessor analyzes many documents concurrently
type BatchProcessor struct {
	analyzer    pipeline.Analyzer
	loader      Loader
	publisher   Publisher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer pipeline.Analyzer, loader Loader, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		loader:      loader,
		concurrency: concurrency,
	}
}

// WithPublisher sets where successful analyses are published
func (b *BatchProcessor) WithPublisher(p Publisher) *BatchProcessor {
	b.publisher = p
	return b
}

// ProcessSources analyzes every source and returns results in input order
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*DocumentResult {
	if len(sources) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, source := range sources {
			ok := pool.Submit(&DocumentJob{
				Index:     i,
				Source:    source,
				Loader:    b.loader,
				Analyzer:  b.analyzer,
				Publisher: b.publisher,
			})
			if !ok {
				break
			}
		}
		pool.Close()
	}()

	out := make([]*DocumentResult, 0, len(sources))
	for result := range pool.Results() {
		out = append(out, result.(*DocumentResult))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads sources from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*DocumentResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads document paths or URLs from a file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
