// Package builder orchestrates one indexing run: the corpus reader feeds the
// document queue, a pool of parser workers drains it, and once every worker
// has made its final flush the dictionary and document store are persisted
// and observers are told the run completed.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/parser"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/tracing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Report summarises a finished run. Partial is set when any error was
// absorbed along the way; Errors lists them.
type Report struct {
	RunID      string                   `json:"run_id"`
	CorpusPath string                   `json:"corpus_path"`
	Stemmed    bool                     `json:"stemmed"`
	CorpusSize int                      `json:"corpus_size"`
	Documents  int                      `json:"documents"`
	Read       int                      `json:"read"`
	Duplicates int                      `json:"duplicates"`
	Elapsed    time.Duration            `json:"elapsed"`
	Phases     map[string]time.Duration `json:"phases,omitempty"`
	Partial    bool                     `json:"partial"`
	Errors     []string                 `json:"errors,omitempty"`
}

func (r *Report) addError(err error) {
	if err == nil {
		return
	}
	r.Partial = true
	r.Errors = append(r.Errors, err.Error())
}

// Observer is told once per run that indexing finished.
type Observer interface {
	IndexingCompleted(ctx context.Context, report Report)
}

type Builder struct {
	cfg       config.IndexerConfig
	retry     resilience.RetryConfig
	observers []Observer
	onParsed  func()
	resets    []func(ctx context.Context) error
	dictOpts  []indexer.Option
	storeOpts []docstore.Option
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Builder)

func WithObservers(obs ...Observer) Option {
	return func(b *Builder) { b.observers = append(b.observers, obs...) }
}

// WithProgress registers a callback run after each parsed document.
func WithProgress(fn func()) Option {
	return func(b *Builder) { b.onParsed = fn }
}

// WithResetHook adds an extra best-effort cleanup step to ResetStore.
func WithResetHook(fn func(ctx context.Context) error) Option {
	return func(b *Builder) { b.resets = append(b.resets, fn) }
}

func WithStoreOptions(opts ...docstore.Option) Option {
	return func(b *Builder) { b.storeOpts = append(b.storeOpts, opts...) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
		b.dictOpts = append(b.dictOpts, indexer.WithMetrics(m))
		b.storeOpts = append(b.storeOpts, docstore.WithMetrics(m))
	}
}

func New(cfg config.IndexerConfig, retry config.RetryConfig, opts ...Option) *Builder {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FlushEvery < 1 {
		cfg.FlushEvery = pipeline.DefaultFlushEvery
	}
	b := &Builder{
		cfg:    cfg,
		retry:  resilience.FromConfig(retry),
		logger: slog.Default().With("component", "builder"),
	}
	b.dictOpts = append(b.dictOpts, indexer.WithMinEntityDocs(cfg.MinEntityDocs))
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// StartIndexing builds the stemmed or unstemmed index of corpusPath into
// postingPath. It always returns a report; failures are logged, recorded in
// the report and never abort the run early.
func (b *Builder) StartIndexing(ctx context.Context, corpusPath, postingPath string, stemmed bool) *Report {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), CorpusPath: corpusPath, Stemmed: stemmed}
	logger := b.logger.With("run_id", report.RunID)
	ctx, span := tracing.Start(ctx, "index", report.RunID)

	dict := indexer.NewDictionary(postingPath, b.dictOpts...)
	store := docstore.New(postingPath, b.storeOpts...)
	pipe := parser.NewPipeline(tokenizer.LoadStopWords(b.cfg.StopWordsPath), tokenizer.NewStemmer(stemmed))
	queue := pipeline.NewQueue()
	flusher := pipeline.NewFlusher(dict, store, b.retry, b.metrics)

	workerOpts := []pipeline.WorkerOption{
		pipeline.WithFlushEvery(b.cfg.FlushEvery),
		pipeline.WithWorkerMetrics(b.metrics),
	}
	if b.onParsed != nil {
		workerOpts = append(workerOpts, pipeline.WithOnParsed(b.onParsed))
	}
	workers := make([]*pipeline.Worker, b.cfg.Workers)
	for i := range workers {
		workers[i] = pipeline.NewWorker(i, queue, pipe, flusher, workerOpts...)
	}

	logger.Info("indexing started", "corpus", corpusPath, "postings", postingPath,
		"stemmed", stemmed, "workers", len(workers))

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			if err := w.Run(ctx); err != nil {
				record(err)
			}
			return nil
		})
	}
	g.Go(func() error {
		readCtx, readSpan := tracing.StartChild(ctx, "read")
		reader := corpus.NewReader(b.cfg.Includes, b.cfg.Excludes)
		n, err := reader.Read(readCtx, corpusPath, func(doc *corpus.Document) error {
			if !queue.Enqueue(doc) {
				mu.Lock()
				report.Duplicates++
				mu.Unlock()
				logger.Debug("duplicate document skipped", "doc_id", doc.ID)
			}
			return nil
		})
		readSpan.Set("documents", n)
		readSpan.End()
		if err != nil {
			logger.Error("reading corpus failed", "corpus", corpusPath, "error", err)
			record(fmt.Errorf("reading corpus: %w", err))
		}
		mu.Lock()
		report.Read = n
		mu.Unlock()

		_, drain := tracing.StartChild(ctx, "drain")
		for _, w := range workers {
			_ = w.Stop()
		}
		drain.End()
		return nil
	})
	_ = g.Wait()

	_, persist := tracing.StartChild(ctx, "persist")
	if err := resilience.Retry(ctx, "save-dictionary", b.retry, func() error { return dict.Save(stemmed) }); err != nil {
		logger.Error("saving dictionary failed", "error", err)
		record(err)
	}
	if err := resilience.Retry(ctx, "save-documents", b.retry, func() error { return store.Save(stemmed) }); err != nil {
		logger.Error("saving document store failed", "error", err)
		record(err)
	}
	persist.End()

	for _, err := range errs {
		report.addError(err)
	}
	report.CorpusSize = dict.CorpusSize()
	report.Documents = store.Size()
	report.Elapsed = time.Since(start)
	span.Set("terms", report.CorpusSize, "documents", report.Documents)
	span.End()
	report.Phases = span.Phases()
	span.Log(logger)

	logger.Info("indexing completed",
		"corpus_size", report.CorpusSize,
		"documents", report.Documents,
		"duplicates", report.Duplicates,
		"elapsed", report.Elapsed,
		"partial", report.Partial,
	)
	for _, obs := range b.observers {
		obs.IndexingCompleted(ctx, *report)
	}
	return report
}

// ResetStore removes both persisted variants under postingPath before a
// fresh run, then runs the configured reset hooks. Failures are logged and
// otherwise ignored.
func (b *Builder) ResetStore(ctx context.Context, corpusPath, postingPath string) {
	for _, stemmed := range []bool{false, true} {
		dir := segment.VariantDir(postingPath, stemmed)
		if err := os.RemoveAll(dir); err != nil {
			b.logger.Warn("could not clear posting store", "dir", dir, "error", err)
		}
	}
	for _, reset := range b.resets {
		if err := reset(ctx); err != nil {
			b.logger.Warn("reset hook failed", "error", err)
		}
	}
	b.logger.Info("posting store reset", "corpus", corpusPath, "postings", postingPath)
}
