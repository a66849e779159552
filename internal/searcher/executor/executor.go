// Package executor turns a raw query string into ranked documents: the query
// goes through the same extractors as the corpus, each term's postings are
// fetched from the dictionary and the ranker scores the candidates.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/parser"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
)

// PostingSource yields the encoded posting list of a term.
type PostingSource interface {
	Postings(term string) (string, bool)
}

type Result struct {
	Query     string                  `json:"query"`
	Stemmed   bool                    `json:"stemmed"`
	Terms     map[string]string       `json:"terms"`
	TermStats map[string]int          `json:"term_stats"`
	TotalHits int                     `json:"total_hits"`
	Results   []ranker.RankedDocument `json:"results"`
}

type Executor struct {
	pipe    *parser.Pipeline
	source  PostingSource
	ranker  *ranker.Ranker
	stemmed bool
	logger  *slog.Logger
}

// New creates an executor. pipe must be configured like the one that built
// the index (same stop words, same stemming).
func New(pipe *parser.Pipeline, source PostingSource, r *ranker.Ranker, stemmed bool) *Executor {
	return &Executor{
		pipe:    pipe,
		source:  source,
		ranker:  r,
		stemmed: stemmed,
		logger:  slog.Default().With("component", "query-executor", "stemmed", stemmed),
	}
}

// Prepare extracts the query terms of raw. Each value is "count#weight" with
// the weight equal to the count.
func (e *Executor) Prepare(raw string) map[string]string {
	counts := make(map[string]int)
	e.pipe.Extract(strings.Fields(raw), func(term, _ string) {
		counts[term]++
	})
	query := make(map[string]string, len(counts))
	for term, n := range counts {
		query[term] = ranker.FormatQueryTerm(n, float64(n))
	}
	return query
}

// Key is a canonical form of the prepared query, stable under term order.
func Key(query map[string]string) string {
	terms := make([]string, 0, len(query))
	for term, v := range query {
		terms = append(terms, term+"="+v)
	}
	sort.Strings(terms)
	return strings.Join(terms, "|")
}

func (e *Executor) Execute(ctx context.Context, raw string) (*Result, error) {
	return e.ExecuteQuery(ctx, raw, e.Prepare(raw))
}

// ExecuteQuery ranks an already prepared query. raw is only echoed back.
func (e *Executor) ExecuteQuery(ctx context.Context, raw string, query map[string]string) (*Result, error) {
	if strings.TrimSpace(raw) == "" && len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query", apperrors.ErrInvalidInput)
	}
	result := &Result{
		Query:     raw,
		Stemmed:   e.stemmed,
		Terms:     query,
		TermStats: make(map[string]int),
		Results:   []ranker.RankedDocument{},
	}
	if len(query) == 0 {
		return result, nil
	}
	if err := e.ranker.Ready(); err != nil {
		return nil, err
	}

	postings := make(map[string]string, len(query))
	hits := make(map[string]struct{})
	for term := range query {
		encoded, ok := e.source.Postings(term)
		if !ok {
			continue
		}
		postings[term] = encoded
		result.TermStats[term] = index.EntryCount(encoded)
		pl, err := index.ParsePostingList(encoded)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		for _, p := range pl {
			hits[p.DocID] = struct{}{}
		}
	}
	result.TotalHits = len(hits)

	ranked, err := e.ranker.RankDocuments(ctx, nil, postings, query)
	if err != nil {
		return nil, fmt.Errorf("ranking %q: %w", raw, err)
	}
	result.Results = ranked
	e.logger.Info("query executed",
		"query", raw,
		"terms", len(query),
		"candidates", result.TotalHits,
		"results", len(ranked),
	)
	return result, nil
}
