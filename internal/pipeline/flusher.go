package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/resilience"
)

// TermMerger accepts a serialised term buffer.
type TermMerger interface {
	Merge(buffer map[string]string) error
}

// DocumentMerger accepts a batch of document metadata.
type DocumentMerger interface {
	MergeBatch(ctx context.Context, batch map[string]docstore.DocumentInfo) error
}

// Flusher serialises hand-offs from workers. Term merges exclude each other,
// document merges exclude each other, and the two kinds run independently.
type Flusher struct {
	termsMu sync.Mutex
	docsMu  sync.Mutex
	terms   TermMerger
	docs    DocumentMerger
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFlusher(terms TermMerger, docs DocumentMerger, retry resilience.RetryConfig, m *metrics.Metrics) *Flusher {
	return &Flusher{
		terms:   terms,
		docs:    docs,
		retry:   retry,
		metrics: m,
		logger:  slog.Default().With("component", "flusher"),
	}
}

// FlushTerms merges buf into the dictionary, retrying transient failures.
// buf is reset only after a successful merge; on failure it keeps its
// contents so nothing is lost.
func (f *Flusher) FlushTerms(ctx context.Context, buf *index.TermBuffer) error {
	if buf.Len() == 0 {
		return nil
	}
	f.termsMu.Lock()
	defer f.termsMu.Unlock()

	entries := buf.Entries()
	start := time.Now()
	err := resilience.Retry(ctx, "merge-terms", f.retry, func() error {
		err := f.terms.Merge(entries)
		if errors.Is(err, apperrors.ErrMalformedPosting) {
			return resilience.Permanent(err)
		}
		return err
	})
	f.observe("terms", start, err)
	if err != nil {
		f.logger.Error("term merge failed, keeping buffer", "terms", len(entries), "error", err)
		return err
	}
	buf.Reset()
	return nil
}

// FlushDocuments merges batch into the document store. The caller resets its
// batch only when nil is returned.
func (f *Flusher) FlushDocuments(ctx context.Context, batch map[string]docstore.DocumentInfo) error {
	if len(batch) == 0 {
		return nil
	}
	f.docsMu.Lock()
	defer f.docsMu.Unlock()

	start := time.Now()
	err := resilience.Retry(ctx, "merge-documents", f.retry, func() error {
		return f.docs.MergeBatch(ctx, batch)
	})
	f.observe("documents", start, err)
	if err != nil {
		f.logger.Error("document merge failed, keeping batch", "documents", len(batch), "error", err)
	}
	return err
}

func (f *Flusher) observe(kind string, start time.Time, err error) {
	if f.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.metrics.FlushesTotal.WithLabelValues(kind, status).Inc()
	f.metrics.MergeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
