package builder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpusFile = `<DOC>
<DOCNO>LA-1</DOCNO>
<TEXT>The Federal Reserve raised rates by 6 percent on May 14.</TEXT>
</DOC>
<DOC>
<DOCNO>LA-2</DOCNO>
<TEXT>Analysts said the Federal Reserve surprised markets.</TEXT>
</DOC>
<DOC>
<DOCNO>LA-3</DOCNO>
<TEXT>The Federal Reserve raised rates by 6 percent on May 14.</TEXT>
</DOC>
`

type recordingObserver struct {
	mu      sync.Mutex
	reports []Report
}

func (o *recordingObserver) IndexingCompleted(_ context.Context, r Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "la001"), []byte(corpusFile), 0o644))
	return dir
}

func testConfig(workers int) config.IndexerConfig {
	return config.IndexerConfig{
		Workers:       workers,
		FlushEvery:    1,
		Includes:      []string{"**/*"},
		MinEntityDocs: 2,
	}
}

func TestStartIndexing_BuildsBothStores(t *testing.T) {
	corpusDir := writeCorpus(t)
	postings := t.TempDir()
	obs := &recordingObserver{}
	parsed := 0
	var mu sync.Mutex

	b := New(testConfig(3), config.RetryConfig{MaxAttempts: 1},
		WithObservers(obs),
		WithProgress(func() { mu.Lock(); parsed++; mu.Unlock() }),
	)
	report := b.StartIndexing(context.Background(), corpusDir, postings, false)

	require.False(t, report.Partial, "errors: %v", report.Errors)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Read)
	// LA-3 equals LA-1 and is dropped if LA-1 is still waiting in the queue.
	assert.Equal(t, 3, report.Documents+report.Duplicates)
	assert.Positive(t, report.CorpusSize)
	assert.Contains(t, report.Phases, "read")
	assert.Contains(t, report.Phases, "persist")
	assert.Equal(t, report.Documents, parsed)

	require.Len(t, obs.reports, 1)
	assert.Equal(t, report.RunID, obs.reports[0].RunID)

	dict := indexer.NewDictionary(postings)
	require.NoError(t, dict.Load(false))
	assert.Equal(t, report.CorpusSize, dict.CorpusSize())
	assert.Equal(t, report.Documents, dict.DocumentFrequency("federal"))
	assert.Contains(t, dict.EntitiesInCorpus(), "FEDERAL RESERVE")

	store := docstore.New(postings)
	require.NoError(t, store.Load(false))
	assert.Equal(t, report.Documents, store.Size())
	length, ok := store.Length("LA-2")
	require.True(t, ok)
	assert.Equal(t, 7, length)
}

func TestStartIndexing_StemmedVariantIsSeparate(t *testing.T) {
	corpusDir := writeCorpus(t)
	postings := t.TempDir()
	b := New(testConfig(1), config.RetryConfig{MaxAttempts: 1})

	report := b.StartIndexing(context.Background(), corpusDir, postings, true)
	require.False(t, report.Partial)
	assert.True(t, report.Stemmed)

	_, err := os.Stat(filepath.Join(segment.VariantDir(postings, true), segment.FileName))
	require.NoError(t, err)
	_, err = os.Stat(segment.VariantDir(postings, false))
	assert.True(t, os.IsNotExist(err))

	dict := indexer.NewDictionary(postings)
	require.NoError(t, dict.Load(true))
	assert.Positive(t, dict.DocumentFrequency("rais"), "raised stems to rais")
}

func TestStartIndexing_MissingStopWordFileCompletes(t *testing.T) {
	corpusDir := writeCorpus(t)
	postings := t.TempDir()
	cfg := testConfig(2)
	cfg.StopWordsPath = filepath.Join(t.TempDir(), "missing.txt")

	report := New(cfg, config.RetryConfig{MaxAttempts: 1}).StartIndexing(context.Background(), corpusDir, postings, false)
	require.False(t, report.Partial)

	dict := indexer.NewDictionary(postings)
	require.NoError(t, dict.Load(false))
	assert.Positive(t, dict.DocumentFrequency("the"), "no stop words are filtered")
}

func TestStartIndexing_MissingCorpusIsPartial(t *testing.T) {
	obs := &recordingObserver{}
	b := New(testConfig(2), config.RetryConfig{MaxAttempts: 1}, WithObservers(obs))

	report := b.StartIndexing(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), false)
	assert.True(t, report.Partial)
	assert.NotEmpty(t, report.Errors)
	assert.Zero(t, report.Documents)
	assert.Len(t, obs.reports, 1, "observers are notified even when the run is partial")
}

func TestResetStore(t *testing.T) {
	corpusDir := writeCorpus(t)
	postings := t.TempDir()
	hookRuns := 0
	b := New(testConfig(1), config.RetryConfig{MaxAttempts: 1},
		WithResetHook(func(context.Context) error { hookRuns++; return os.ErrPermission }),
	)
	b.StartIndexing(context.Background(), corpusDir, postings, false)
	b.StartIndexing(context.Background(), corpusDir, postings, true)

	b.ResetStore(context.Background(), corpusDir, postings)

	for _, stemmed := range []bool{false, true} {
		_, err := os.Stat(segment.VariantDir(postings, stemmed))
		assert.True(t, os.IsNotExist(err))
	}
	assert.Equal(t, 1, hookRuns)

	b.ResetStore(context.Background(), corpusDir, filepath.Join(t.TempDir(), "never-created"))
}
