package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/parser"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
)

// State is the lifecycle phase of a worker.
type State int32

const (
	StateIdle State = iota
	StateParsing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const DefaultFlushEvery = 100

// Worker parses documents from a Queue into a private term buffer and
// document batch, handing both to the Flusher every flushEvery documents and
// once more when stopped.
type Worker struct {
	id         int
	queue      *Queue
	pipeline   *parser.Pipeline
	flusher    *Flusher
	flushEvery int
	onParsed   func()

	buffer     *index.TermBuffer
	batch      map[string]docstore.DocumentInfo
	sinceFlush int

	state    atomic.Int32
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error

	metrics *metrics.Metrics
	logger  *slog.Logger
}

type WorkerOption func(*Worker)

// WithFlushEvery sets how many parsed documents trigger a flush.
func WithFlushEvery(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.flushEvery = n
		}
	}
}

// WithOnParsed registers a callback run after every parsed document.
func WithOnParsed(fn func()) WorkerOption {
	return func(w *Worker) { w.onParsed = fn }
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(id int, q *Queue, p *parser.Pipeline, f *Flusher, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:         id,
		queue:      q,
		pipeline:   p,
		flusher:    f,
		flushEvery: DefaultFlushEvery,
		buffer:     index.NewTermBuffer(),
		batch:      make(map[string]docstore.DocumentInfo),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "parser-worker", "worker", id),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) State() State { return State(w.state.Load()) }

// Done is closed once the worker has made its final flush.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run consumes the queue until Stop is called and the queue is drained, or
// ctx is cancelled. It always finishes with a forced flush and returns that
// flush's error.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	for {
		if ctx.Err() != nil {
			return w.cancelled(ctx)
		}
		changed := w.queue.Changed()
		if doc, ok := w.queue.Dequeue(); ok {
			w.process(doc)
			if w.sinceFlush >= w.flushEvery {
				if err := w.flush(ctx); err != nil {
					w.logger.Warn("periodic flush failed, will retry on next flush", "error", err)
				}
			}
			continue
		}

		select {
		case <-changed:
		case <-w.stopCh:
			if !w.queue.IsEmpty() {
				continue
			}
			return w.finish(ctx)
		case <-ctx.Done():
			return w.cancelled(ctx)
		}
	}
}

// cancelled still flushes what was parsed so far; cancellation only stops
// further consumption.
func (w *Worker) cancelled(ctx context.Context) error {
	err := w.finish(context.WithoutCancel(ctx))
	return errors.Join(ctx.Err(), err)
}

func (w *Worker) finish(ctx context.Context) error {
	err := w.flush(ctx)
	if err != nil {
		err = fmt.Errorf("worker %d final flush: %w", w.id, err)
	}
	w.err = err
	w.state.Store(int32(StateStopped))
	w.logger.Debug("worker stopped", "error", err)
	return err
}

// Stop tells the worker no more documents will arrive, waits until it has
// drained the queue and flushed, and returns the final flush error.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
	return w.err
}

func (w *Worker) process(doc *corpus.Document) {
	w.state.Store(int32(StateParsing))
	defer w.state.Store(int32(StateIdle))

	type occurrence struct{ term, parser string }
	var found []occurrence
	if err := w.extract(doc, func(term, p string) {
		found = append(found, occurrence{term, p})
	}); err != nil {
		w.logger.Error("skipping document", "doc_id", doc.ID, "error", err)
		if w.metrics != nil {
			w.metrics.ParseFailuresTotal.Inc()
		}
		return
	}

	for _, o := range found {
		w.buffer.Record(o.term, doc.ID, o.parser)
		doc.AddTerm(o.term, o.parser == parser.NameEntity)
	}
	w.batch[doc.ID] = docstore.NewDocumentInfo(doc)
	w.sinceFlush++
	if w.metrics != nil {
		w.metrics.DocsParsedTotal.Inc()
	}
	if w.onParsed != nil {
		w.onParsed()
	}
}

func (w *Worker) extract(doc *corpus.Document, emit func(term, parser string)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while parsing: %v", r)
		}
	}()
	w.pipeline.Extract(doc.Tokens(), emit)
	return nil
}

// flush hands both buffers to the Flusher. Each buffer is cleared only when
// its own merge succeeded.
func (w *Worker) flush(ctx context.Context) error {
	termErr := w.flusher.FlushTerms(ctx, w.buffer)
	docErr := w.flusher.FlushDocuments(ctx, w.batch)
	if docErr == nil {
		w.batch = make(map[string]docstore.DocumentInfo)
	}
	if termErr == nil && docErr == nil {
		w.sinceFlush = 0
	}
	return errors.Join(termErr, docErr)
}
