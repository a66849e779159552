package indexer

import (
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_SumsPerDocument(t *testing.T) {
	d := NewDictionary(t.TempDir())
	require.NoError(t, d.Merge(map[string]string{"bank": "d1#2#words;d2#1#words"}))
	require.NoError(t, d.Merge(map[string]string{"bank": "d1#3#words", "rate": "d3#1#words"}))

	raw, ok := d.Postings("bank")
	require.True(t, ok)
	assert.Equal(t, "d1#5#words;d2#1#words", raw)
	assert.Equal(t, 2, d.DocumentFrequency("bank"))
	assert.Equal(t, 6, d.TotalTermFrequency("bank"))
	assert.Equal(t, 2, d.CorpusSize())
}

func TestMerge_EmptyBufferIsNoOp(t *testing.T) {
	d := NewDictionary(t.TempDir())
	require.NoError(t, d.Merge(map[string]string{"bank": "d1#1#words"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Merge(map[string]string{}))
		require.NoError(t, d.Merge(nil))
	}
	require.NoError(t, d.Merge(map[string]string{"ghost": "", "blank": ";;"}))
	assert.Equal(t, 1, d.DocumentFrequency("bank"))
	assert.Equal(t, 1, d.CorpusSize())
	assert.Zero(t, d.DocumentFrequency("ghost"))
	assert.NotContains(t, d.Terms(), "ghost")
}

func TestMerge_MalformedLeavesStateUntouched(t *testing.T) {
	d := NewDictionary(t.TempDir())
	err := d.Merge(map[string]string{
		"good": "d1#1#words",
		"bad":  "d1#oops#words",
	})
	require.ErrorIs(t, err, apperrors.ErrMergeFailed)
	assert.ErrorIs(t, err, apperrors.ErrMalformedPosting)
	assert.Zero(t, d.CorpusSize())
}

func TestMerge_Concurrent(t *testing.T) {
	d := NewDictionary(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = d.Merge(map[string]string{"shared": "doc#1#words"})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, d.DocumentFrequency("shared"))
	assert.Equal(t, 400, d.TotalTermFrequency("shared"))
}

func TestSaveLoad_PerVariant(t *testing.T) {
	root := t.TempDir()
	d := NewDictionary(root)
	require.NoError(t, d.Merge(map[string]string{
		"BANK OF JAPAN": "d1#2#entity;d2#1#entity",
		"TOKYO":         "d1#1#entity",
		"bank":          "d1#3#words",
	}))
	require.NoError(t, d.Save(false))

	loaded := NewDictionary(root)
	require.NoError(t, loaded.Load(false))
	assert.Equal(t, d.Terms(), loaded.Terms())
	assert.Equal(t, map[string]struct{}{"BANK OF JAPAN": {}}, loaded.EntitiesInCorpus())

	require.NoError(t, loaded.Load(false), "load is repeatable")
	assert.Equal(t, 3, loaded.CorpusSize())

	err := NewDictionary(root).Load(true)
	assert.ErrorIs(t, err, apperrors.ErrNotLoaded, "stemmed variant was never saved")
}

func TestEntitiesInCorpus_Threshold(t *testing.T) {
	d := NewDictionary(t.TempDir(), WithMinEntityDocs(1))
	require.NoError(t, d.Merge(map[string]string{
		"TOKYO": "d1#1#entity",
		"tokyo": "d1#1#words",
	}))
	assert.Equal(t, map[string]struct{}{"TOKYO": {}}, d.EntitiesInCorpus())
}

func TestDictionary_MetricsAndReset(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := NewDictionary(t.TempDir(), WithMetrics(m))
	require.NoError(t, d.Merge(map[string]string{"a": "d1#1#words", "b": "d1#1#words"}))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DictionaryTerms))
	assert.True(t, d.Loaded())
	assert.Equal(t, []string{"a", "b"}, d.SortedTerms(""))
	assert.Equal(t, []string{"b"}, d.SortedTerms("b"))

	d.Reset()
	assert.Zero(t, testutil.ToFloat64(m.DictionaryTerms))
	assert.False(t, d.Loaded())
}
