// Package docstore keeps per-document metadata (length and entity counts)
// together with the corpus-wide document count and average length. Parser
// workers merge batches into it; the ranker reads it after a Load.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"go.etcd.io/bbolt"
)

const FileName = "documents.db"

var (
	bucketDocs  = []byte("documents")
	bucketStats = []byte("stats")
	keyStats    = []byte("corpus")
)

// DocumentInfo is what the ranker needs to know about one document.
type DocumentInfo struct {
	DocID    string         `json:"id"`
	Length   int            `json:"len"`
	Entities map[string]int `json:"ent,omitempty"`
}

// NewDocumentInfo snapshots a parsed document.
func NewDocumentInfo(doc *corpus.Document) DocumentInfo {
	return DocumentInfo{
		DocID:    doc.ID,
		Length:   doc.Length(),
		Entities: doc.Entities(),
	}
}

// Mirror receives every merged batch, e.g. to copy it into PostgreSQL.
type Mirror interface {
	MirrorBatch(ctx context.Context, batch []DocumentInfo) error
}

type corpusStats struct {
	Documents   int   `json:"documents"`
	TotalLength int64 `json:"total_length"`
}

type Store struct {
	mu           sync.RWMutex
	root         string
	docs         map[string]DocumentInfo
	entityTotals map[string]int
	totalLength  int64
	loaded       bool
	mirror       Mirror
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty store persisted under postingRoot.
func New(postingRoot string, opts ...Option) *Store {
	s := &Store{
		root:         postingRoot,
		docs:         make(map[string]DocumentInfo),
		entityTotals: make(map[string]int),
		logger:       slog.Default().With("component", "docstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MergeBatch adds batch to the store. A document already present is
// replaced, so a retried batch does not double count. When a mirror is
// configured it must accept the batch before anything is applied.
func (s *Store) MergeBatch(ctx context.Context, batch map[string]DocumentInfo) error {
	if len(batch) == 0 {
		return nil
	}
	if s.mirror != nil {
		infos := make([]DocumentInfo, 0, len(batch))
		for _, info := range batch {
			infos = append(infos, info)
		}
		if err := s.mirror.MirrorBatch(ctx, infos); err != nil {
			return fmt.Errorf("%w: mirroring %d documents: %w", apperrors.ErrMergeFailed, len(infos), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, info := range batch {
		if info.DocID == "" {
			info.DocID = id
		}
		s.put(info)
	}
	s.loaded = true
	s.observeSize()
	return nil
}

func (s *Store) put(info DocumentInfo) {
	if old, ok := s.docs[info.DocID]; ok {
		s.totalLength -= int64(old.Length)
		for e, n := range old.Entities {
			s.entityTotals[e] -= n
		}
	}
	s.docs[info.DocID] = info
	s.totalLength += int64(info.Length)
	for e, n := range info.Entities {
		s.entityTotals[e] += n
	}
}

func (s *Store) path(stemmed bool) string {
	return filepath.Join(segment.VariantDir(s.root, stemmed), FileName)
}

// Save writes every document and the corpus stats into a fresh bolt file.
func (s *Store) Save(stemmed bool) error {
	path := s.path(stemmed)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating document store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer db.Close()

	s.mu.RLock()
	defer s.mu.RUnlock()
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocs, bucketStats} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("clearing bucket %s: %w", name, err)
			}
		}
		docs, err := tx.CreateBucket(bucketDocs)
		if err != nil {
			return err
		}
		for id, info := range s.docs {
			data, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", id, err)
			}
			if err := docs.Put([]byte(id), data); err != nil {
				return err
			}
		}
		stats, err := tx.CreateBucket(bucketStats)
		if err != nil {
			return err
		}
		data, err := json.Marshal(corpusStats{Documents: len(s.docs), TotalLength: s.totalLength})
		if err != nil {
			return err
		}
		return stats.Put(keyStats, data)
	})
	if err != nil {
		return fmt.Errorf("saving document store: %w", err)
	}
	s.logger.Info("document store saved", "path", path, "documents", len(s.docs))
	return nil
}

// Load replaces the in-memory state with the persisted variant. It can be
// called any number of times.
func (s *Store) Load(stemmed bool) error {
	path := s.path(stemmed)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: no document store at %s", apperrors.ErrNotLoaded, path)
		}
		return fmt.Errorf("loading document store: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer db.Close()

	docs := make(map[string]DocumentInfo)
	var stats corpusStats
	err = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		if b == nil {
			return fmt.Errorf("missing %s bucket", bucketDocs)
		}
		if err := b.ForEach(func(k, v []byte) error {
			var info DocumentInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			docs[string(k)] = info
			return nil
		}); err != nil {
			return err
		}
		if sb := tx.Bucket(bucketStats); sb != nil {
			if data := sb.Get(keyStats); data != nil {
				return json.Unmarshal(data, &stats)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading document store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]DocumentInfo, len(docs))
	s.entityTotals = make(map[string]int)
	s.totalLength = 0
	for _, info := range docs {
		s.put(info)
	}
	if stats.Documents != len(docs) || stats.TotalLength != s.totalLength {
		s.logger.Warn("stored corpus stats disagree with documents, using recomputed values",
			"stored_documents", stats.Documents, "documents", len(docs))
	}
	s.loaded = true
	s.observeSize()
	return nil
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]DocumentInfo)
	s.entityTotals = make(map[string]int)
	s.totalLength = 0
	s.loaded = false
	s.observeSize()
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Length returns the token count of docID.
func (s *Store) Length(docID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.docs[docID]
	return info.Length, ok
}

// Info returns the metadata of docID; ok is false for unknown ids.
func (s *Store) Info(docID string) (DocumentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.docs[docID]
	return info, ok
}

func (s *Store) AvgLength() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.docs) == 0 {
		return 0
	}
	return float64(s.totalLength) / float64(len(s.docs))
}

// Size is the number of documents.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// EntityTotal sums entity's frequency over every document.
func (s *Store) EntityTotal(entity string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entityTotals[entity]
}

func (s *Store) observeSize() {
	if s.metrics != nil {
		s.metrics.CorpusDocuments.Set(float64(len(s.docs)))
	}
}
