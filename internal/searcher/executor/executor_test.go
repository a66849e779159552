package executor

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/parser"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	root := t.TempDir()
	dict := indexer.NewDictionary(root)
	require.NoError(t, dict.Merge(map[string]string{
		"bank": "d1#2#words;d2#1#words",
		"rate": "d2#3#words",
		"gold": "d3#1#words",
	}))
	store := docstore.New(root)
	require.NoError(t, store.MergeBatch(context.Background(), map[string]docstore.DocumentInfo{
		"d1": {DocID: "d1", Length: 10},
		"d2": {DocID: "d2", Length: 20},
		"d3": {DocID: "d3", Length: 15},
	}))
	pipe := parser.NewPipeline(tokenizer.DefaultStopWords(), tokenizer.NewStemmer(false))
	return New(pipe, dict, ranker.New(dict, store, false), false)
}

func TestPrepare_CountsTerms(t *testing.T) {
	e := newTestExecutor(t)
	q := e.Prepare("The bank, the BANK and the rate")
	assert.Equal(t, map[string]string{"bank": "2#2", "rate": "1#1"}, q)
}

func TestKey_IsOrderIndependent(t *testing.T) {
	a := Key(map[string]string{"x": "1#1", "y": "2#2"})
	b := Key(map[string]string{"y": "2#2", "x": "1#1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Key(map[string]string{"x": "1#1"}))
}

func TestExecute_RanksCandidates(t *testing.T) {
	e := newTestExecutor(t)
	res, err := e.Execute(context.Background(), "bank rate")
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalHits)
	assert.Equal(t, map[string]int{"bank": 2, "rate": 1}, res.TermStats)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "d2", res.Results[0].DocID, "d2 matches both terms")
	assert.Greater(t, res.Results[0].Score, res.Results[1].Score)
}

func TestExecute_UnknownTermsYieldNothing(t *testing.T) {
	e := newTestExecutor(t)
	res, err := e.Execute(context.Background(), "platinum")
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)
	assert.Empty(t, res.Results)

	res, err = e.Execute(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Empty(t, res.Terms)
}

func TestExecute_EmptyQuery(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Execute(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
