package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpus = `<DOC>
<DOCNO>WSJ-1</DOCNO>
<TEXT>The Federal Reserve kept interest rates unchanged.</TEXT>
</DOC>
<DOC>
<DOCNO>WSJ-2</DOCNO>
<TEXT>Traders expect the Federal Reserve to cut interest rates twice.</TEXT>
</DOC>
`

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestIndexSearchAndReset(t *testing.T) {
	corpusDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "wsj"), []byte(corpus), 0o644))
	postings := t.TempDir()

	require.NoError(t, run(t, "index", corpusDir, "-p", postings, "--quiet", "--workers", "2"))
	_, err := os.Stat(filepath.Join(segment.VariantDir(postings, false), segment.FileName))
	require.NoError(t, err)

	assert.NoError(t, run(t, "search", "-q", "interest rates", "-p", postings, "--json"))
	assert.NoError(t, run(t, "entities", "WSJ-2", "-p", postings))
	assert.NoError(t, run(t, "terms", "-p", postings, "--prefix", "inter"))
	assert.Error(t, run(t, "entities", "missing-doc", "-p", postings))

	require.NoError(t, run(t, "reset", "-p", postings))
	_, err = os.Stat(segment.VariantDir(postings, false))
	assert.True(t, os.IsNotExist(err))
}

func TestRankFromFile(t *testing.T) {
	corpusDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "wsj"), []byte(corpus), 0o644))
	postings := t.TempDir()
	require.NoError(t, run(t, "index", corpusDir, "-p", postings, "--quiet"))

	req := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(req, []byte(`{"postings":{"rates":"WSJ-1#1#words;WSJ-2#1#words"},"query":{"rates":"1#1"}}`), 0o644))
	assert.NoError(t, run(t, "rank", req, "-p", postings))

	require.NoError(t, os.WriteFile(req, []byte(`{"postings":{"rates":"WSJ-1#x#words"},"query":{"rates":"1#1"}}`), 0o644))
	assert.Error(t, run(t, "rank", req, "-p", postings))
}

func TestLoadtestAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, run(t, "loadtest", "--url", srv.URL, "-c", "2", "-d", "100ms", "-q", "oil prices"))
}
