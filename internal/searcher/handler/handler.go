// Package handler exposes ranking over HTTP: free-text search, raw
// postings/query ranking, per-document entity ranking and a dictionary
// listing, plus cache and reload administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/middleware"
)

const (
	maxBodyBytes     = 1 << 20
	defaultTermLimit = 100
)

type QueryExecutor interface {
	Prepare(raw string) map[string]string
	ExecuteQuery(ctx context.Context, raw string, query map[string]string) (*executor.Result, error)
}

type Ranker interface {
	RankDocuments(ctx context.Context, qc *ranker.QueryContext, postings, query map[string]string) ([]ranker.RankedDocument, error)
	RankEntities(ctx context.Context, docID string) ([]ranker.RankedEntity, error)
	Reload() error
}

// TermSource lists dictionary terms with their total frequency.
type TermSource interface {
	SortedTerms(prefix string) []string
	TotalTermFrequency(term string) int
}

type Handler struct {
	executor QueryExecutor
	ranker   Ranker
	terms    TermSource
	cache    *cache.QueryCache
	stemmed  bool
	logger   *slog.Logger
}

// New creates a handler; queryCache may be nil.
func New(exec QueryExecutor, r Ranker, terms TermSource, queryCache *cache.QueryCache, stemmed bool) *Handler {
	return &Handler{
		executor: exec,
		ranker:   r,
		terms:    terms,
		cache:    queryCache,
		stemmed:  stemmed,
		logger:   slog.Default().With("component", "rank-handler"),
	}
}

// Routes registers every endpoint and wraps the mux in the request-id,
// metrics and timeout middleware.
func (h *Handler) Routes(checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/rank", h.Rank)
	mux.HandleFunc("GET /api/v1/documents/{id}/entities", h.Entities)
	mux.HandleFunc("GET /api/v1/terms", h.Terms)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}
	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.Timeout(timeout),
	)
}

// Search ranks a free-text query. The optional limit trims the ranked list.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	raw := r.URL.Query().Get("q")
	if strings.TrimSpace(raw) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	query := h.executor.Prepare(raw)
	compute := func() (*executor.Result, error) { return h.executor.ExecuteQuery(ctx, raw, query) }
	var (
		result   *executor.Result
		cacheHit bool
		err      error
	)
	if h.cache != nil && len(query) > 0 {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.stemmed, query, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search failed", "query", raw, "error", err)
		h.writeError(w, err)
		return
	}

	if limit > 0 && len(result.Results) > limit {
		trimmed := *result
		trimmed.Results = result.Results[:limit]
		result = &trimmed
	}
	log.Info("search completed",
		"query", raw,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// RankRequest carries term -> posting list and term -> "frequency#weight".
type RankRequest struct {
	Postings map[string]string `json:"postings"`
	Query    map[string]string `json:"query"`
}

type RankResponse struct {
	Results []ranker.RankedDocument `json:"results"`
}

func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding body: %v", err))
		return
	}
	ranked, err := h.ranker.RankDocuments(r.Context(), nil, req.Postings, req.Query)
	if err != nil {
		logger.FromContext(r.Context()).Warn("rank request failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RankResponse{Results: ranked})
}

type EntitiesResponse struct {
	DocID    string                `json:"doc_id"`
	Entities []ranker.RankedEntity `json:"entities"`
}

func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	ranked, err := h.ranker.RankEntities(r.Context(), docID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, EntitiesResponse{DocID: docID, Entities: ranked})
}

type TermFrequency struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// Terms lists dictionary terms alphabetically, optionally filtered by prefix.
func (h *Handler) Terms(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	limit := defaultTermLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	keys := h.terms.SortedTerms(prefix)
	out := make([]TermFrequency, 0, min(limit, len(keys)))
	for _, term := range keys[:min(limit, len(keys))] {
		out = append(out, TermFrequency{Term: term, Frequency: h.terms.TotalTermFrequency(term)})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"total": len(keys), "terms": out})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// Reload re-reads the persisted stores and drops cached rankings.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.ranker.Reload(); err != nil {
		h.logger.Error("reload failed", "error", err)
		h.writeError(w, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err onto a status code. Internal failures are not echoed.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		msg = appErr.Message
	case status >= http.StatusInternalServerError:
		msg = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
