// Package ranker scores documents against a query with BM25 and ranks the
// named entities of a single document.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
)

const (
	DefaultK1           = 1.5
	DefaultB            = 0.75
	DefaultMaxDocuments = 50
	DefaultMaxEntities  = 5
)

// Dictionary is the read side of the master dictionary.
type Dictionary interface {
	Load(stemmed bool) error
	Loaded() bool
	TotalTermFrequency(term string) int
	EntitiesInCorpus() map[string]struct{}
}

// Documents is the read side of the document store.
type Documents interface {
	Load(stemmed bool) error
	Loaded() bool
	Info(docID string) (docstore.DocumentInfo, bool)
	AvgLength() float64
	Size() int
	EntityTotal(entity string) int
}

type RankedDocument struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

type RankedEntity struct {
	Entity string  `json:"entity"`
	Score  float64 `json:"score"`
}

type Ranker struct {
	dict        Dictionary
	docs        Documents
	stemmed     bool
	k1          float64
	b           float64
	maxDocs     int
	maxEntities int

	loadMu  sync.Mutex
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Ranker)

// WithConfig applies the ranking section; zero values keep the defaults.
func WithConfig(cfg config.RankingConfig) Option {
	return func(r *Ranker) {
		if cfg.K1 > 0 {
			r.k1 = cfg.K1
		}
		if cfg.B > 0 && cfg.B <= 1 {
			r.b = cfg.B
		}
		if cfg.MaxDocuments > 0 {
			r.maxDocs = cfg.MaxDocuments
		}
		if cfg.MaxEntities > 0 {
			r.maxEntities = cfg.MaxEntities
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Ranker) { r.metrics = m }
}

// New creates a ranker over the stemmed or unstemmed variant of dict and
// docs. Both are loaded from disk on first use.
func New(dict Dictionary, docs Documents, stemmed bool, opts ...Option) *Ranker {
	r := &Ranker{
		dict:        dict,
		docs:        docs,
		stemmed:     stemmed,
		k1:          DefaultK1,
		b:           DefaultB,
		maxDocs:     DefaultMaxDocuments,
		maxEntities: DefaultMaxEntities,
		logger:      slog.Default().With("component", "ranker", "stemmed", stemmed),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload re-reads both stores from disk, e.g. after a new indexing run.
func (r *Ranker) Reload() error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if err := r.docs.Load(r.stemmed); err != nil {
		return fmt.Errorf("loading document store: %w", err)
	}
	if err := r.dict.Load(r.stemmed); err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}
	return nil
}

// Ready loads the document store and dictionary if they are not loaded yet.
func (r *Ranker) Ready() error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if !r.docs.Loaded() {
		if err := r.docs.Load(r.stemmed); err != nil {
			return fmt.Errorf("loading document store: %w", err)
		}
	}
	if !r.dict.Loaded() {
		if err := r.dict.Load(r.stemmed); err != nil {
			return fmt.Errorf("loading dictionary: %w", err)
		}
	}
	return nil
}

type termHit struct {
	weight float64
	tf     int
	df     int
}

// RankDocuments merges query into qc and scores every document that appears
// in postings (term -> encoded posting list):
//
//	score += w * ((k1+1)*tf) / (tf + k1*(1-b+b*L/avgL)) * ln((M+1)/df)
//
// where w is the accumulated query weight of the term. It returns the best
// documents by score, ties broken by document id. Any malformed input, a
// posting term missing from the query or an unknown document fails the whole
// call with no results. A nil qc ranks the
// query on its own.
func (r *Ranker) RankDocuments(ctx context.Context, qc *QueryContext, postings map[string]string, query map[string]string) (ranked []RankedDocument, err error) {
	start := time.Now()
	defer func() { r.observe("documents", start, len(ranked), err) }()

	if qc == nil {
		qc = NewQueryContext()
	}
	if err := qc.Merge(query); err != nil {
		return nil, err
	}
	if err := r.Ready(); err != nil {
		return nil, err
	}

	hits := make(map[string][]termHit)
	for term, raw := range postings {
		weight, ok := qc.Weight(term)
		if !ok {
			return nil, fmt.Errorf("%w: term %q has no query weight", apperrors.ErrMalformedQuery, term)
		}
		pl, err := index.ParsePostingList(raw)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		for _, p := range pl {
			hits[p.DocID] = append(hits[p.DocID], termHit{weight: weight, tf: p.Frequency, df: len(pl)})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := float64(r.docs.Size())
	avgL := r.docs.AvgLength()
	candidates := make([]RankedDocument, 0, len(hits))
	for docID, terms := range hits {
		info, ok := r.docs.Info(docID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
		}
		score := 0.0
		for _, h := range terms {
			score += BM25(h.weight, float64(h.tf), float64(h.df), float64(info.Length), avgL, m, r.k1, r.b)
		}
		candidates = append(candidates, RankedDocument{DocID: docID, Score: score})
	}

	ranked = merger.TopK(candidates, r.maxDocs, func(a, b RankedDocument) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.DocID < b.DocID
	})
	r.logger.Debug("documents ranked", "candidates", len(candidates), "returned", len(ranked))
	return ranked, nil
}

// BM25 is the contribution of one term to one document's score. An empty
// corpus (avgL of zero) disables length normalisation.
func BM25(weight, tf, df, docLen, avgL, corpusDocs, k1, b float64) float64 {
	if tf <= 0 || df <= 0 {
		return 0
	}
	ratio := 0.0
	if avgL > 0 {
		ratio = docLen / avgL
	}
	norm := ((k1 + 1) * tf) / (tf + k1*(1-b+b*ratio))
	return weight * norm * math.Log((corpusDocs+1)/df)
}

// RankEntities ranks the entities of docID that also belong to the corpus
// entity set:
//
//	rank = tf/totalTf + tf/L + tf/E
//
// with E the number of such entities in the document.
func (r *Ranker) RankEntities(ctx context.Context, docID string) (ranked []RankedEntity, err error) {
	start := time.Now()
	defer func() { r.observe("entities", start, len(ranked), err) }()

	if err := r.Ready(); err != nil {
		return nil, err
	}
	info, ok := r.docs.Info(docID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpusEntities := r.dict.EntitiesInCorpus()
	retained := make(map[string]int, len(info.Entities))
	for entity, tf := range info.Entities {
		if _, ok := corpusEntities[entity]; ok && tf > 0 {
			retained[entity] = tf
		}
	}
	if len(retained) == 0 || info.Length == 0 {
		return []RankedEntity{}, nil
	}

	e := float64(len(retained))
	l := float64(info.Length)
	candidates := make([]RankedEntity, 0, len(retained))
	for entity, tf := range retained {
		total := r.dict.TotalTermFrequency(entity)
		if total == 0 {
			total = r.docs.EntityTotal(entity)
		}
		if total == 0 {
			continue
		}
		candidates = append(candidates, RankedEntity{
			Entity: entity,
			Score:  EntityScore(float64(tf), float64(total), l, e),
		})
	}
	return merger.TopK(candidates, r.maxEntities, func(a, b RankedEntity) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Entity < b.Entity
	}), nil
}

// EntityScore is tf/totalTf + tf/docLen + tf/entities.
func EntityScore(tf, totalTf, docLen, entities float64) float64 {
	return tf/totalTf + tf/docLen + tf/entities
}

func (r *Ranker) observe(kind string, start time.Time, n int, err error) {
	if err != nil {
		r.logger.Warn("ranking failed", "kind", kind, "error", err)
	}
	if r.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case n == 0:
		outcome = "empty"
	}
	r.metrics.RankRequestsTotal.WithLabelValues(kind, outcome).Inc()
	r.metrics.RankLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
