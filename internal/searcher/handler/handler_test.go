package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct{ calls int }

func (f *fakeExecutor) Prepare(raw string) map[string]string {
	q := map[string]string{}
	for _, w := range strings.Fields(raw) {
		q[strings.ToLower(w)] = "1#1"
	}
	return q
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, raw string, query map[string]string) (*executor.Result, error) {
	f.calls++
	if _, ok := query["boom"]; ok {
		return nil, fmt.Errorf("ranking: %w", apperrors.ErrMalformedPosting)
	}
	return &executor.Result{
		Query:     raw,
		Terms:     query,
		TotalHits: 3,
		Results: []ranker.RankedDocument{
			{DocID: "d1", Score: 3}, {DocID: "d2", Score: 2}, {DocID: "d3", Score: 1},
		},
	}, nil
}

type fakeRanker struct {
	reloads int
	lastQ   map[string]string
}

func (f *fakeRanker) RankDocuments(_ context.Context, _ *ranker.QueryContext, postings, query map[string]string) ([]ranker.RankedDocument, error) {
	f.lastQ = query
	if len(postings) == 0 {
		return []ranker.RankedDocument{}, nil
	}
	if _, ok := query["bad"]; ok {
		return nil, apperrors.ErrMalformedQuery
	}
	return []ranker.RankedDocument{{DocID: "d9", Score: 1.5}}, nil
}

func (f *fakeRanker) RankEntities(_ context.Context, docID string) ([]ranker.RankedEntity, error) {
	if docID != "d1" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	}
	return []ranker.RankedEntity{{Entity: "FEDERAL RESERVE", Score: 2.6}}, nil
}

func (f *fakeRanker) Reload() error { f.reloads++; return nil }

type fakeTerms map[string]int

func (f fakeTerms) SortedTerms(prefix string) []string {
	var out []string
	for term := range f {
		if strings.HasPrefix(term, prefix) {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

func (f fakeTerms) TotalTermFrequency(term string) int { return f[term] }

func newServer(t *testing.T) (*httptest.Server, *fakeExecutor, *fakeRanker) {
	t.Helper()
	exec := &fakeExecutor{}
	rk := &fakeRanker{}
	h := New(exec, rk, fakeTerms{"bank": 4, "banker": 1, "rate": 7}, nil, false)
	checker := health.NewChecker()
	checker.Register("dictionary", health.Loaded("dictionary", func() bool { return true }))
	srv := httptest.NewServer(h.Routes(checker, nil, 0))
	t.Cleanup(srv.Close)
	return srv, exec, rk
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSearch(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/search?q=bank+rate&limit=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	var res executor.Result
	decode(t, resp, &res)
	assert.Equal(t, 3, res.TotalHits)
	assert.Len(t, res.Results, 2)
}

func TestSearch_Validation(t *testing.T) {
	srv, _, _ := newServer(t)
	for _, q := range []string{"", "q=bank&limit=0", "q=bank&limit=x"} {
		resp, err := http.Get(srv.URL + "/api/v1/search?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp, err := http.Get(srv.URL + "/api/v1/search?q=boom")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "malformed posting")
}

func TestRank(t *testing.T) {
	srv, _, rk := newServer(t)
	body := `{"postings":{"bank":"d9#2#words"},"query":{"bank":"1#2"}}`
	resp, err := http.Post(srv.URL+"/api/v1/rank", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out RankResponse
	decode(t, resp, &out)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "d9", out.Results[0].DocID)
	assert.Equal(t, map[string]string{"bank": "1#2"}, rk.lastQ)

	resp, err = http.Post(srv.URL+"/api/v1/rank", "application/json", strings.NewReader(`{"postings":{"x":"d#1#w"},"query":{"bad":"?"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/v1/rank", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntities(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/documents/d1/entities")
	require.NoError(t, err)
	var out EntitiesResponse
	decode(t, resp, &out)
	assert.Equal(t, "d1", out.DocID)
	require.Len(t, out.Entities, 1)
	assert.InDelta(t, 2.6, out.Entities[0].Score, 1e-9)

	resp, err = http.Get(srv.URL + "/api/v1/documents/nope/entities")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTerms(t *testing.T) {
	srv, _, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/terms?prefix=ban&limit=1")
	require.NoError(t, err)
	var out struct {
		Total int             `json:"total"`
		Terms []TermFrequency `json:"terms"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, []TermFrequency{{Term: "bank", Frequency: 4}}, out.Terms)
}

func TestReloadAndCacheDisabled(t *testing.T) {
	srv, _, rk := newServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/admin/reload", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, rk.reloads)

	resp, err = http.Get(srv.URL + "/api/v1/cache/stats")
	require.NoError(t, err)
	var stats map[string]string
	decode(t, resp, &stats)
	assert.Equal(t, "disabled", stats["status"])

	resp, err = http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newServer(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
