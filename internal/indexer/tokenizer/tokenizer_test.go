package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"word", "word"},
		{"(word),", "word"},
		{`"quoted."`, "quoted"},
		{"--", ""},
		{"", ""},
		{"6%", "6%"},
		{"it's", "it's"},
		{"[[nested]]!", "nested"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestIsPunctuationBoundary(t *testing.T) {
	assert.True(t, IsPunctuationBoundary("word,"))
	assert.True(t, IsPunctuationBoundary("(word"))
	assert.False(t, IsPunctuationBoundary("wo-rd"))
	assert.False(t, IsPunctuationBoundary(""))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in       string
		wantKind Kind
		wantNorm string
	}{
		{"Apple,", KindWord, "Apple"},
		{"1,000", KindNumber, "1,000"},
		{"-3.5", KindNumber, "3.5"},
		{"3/4", KindFraction, "3/4"},
		{"1,000/3", KindFraction, "1,000/3"},
		{"25%", KindPercent, "25%"},
		{"...", KindEmpty, ""},
		{"NaN", KindWord, "NaN"},
		{"1/2/3", KindWord, "1/2/3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, norm := Classify(tt.in)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantNorm, norm)
		})
	}
}

func TestFractionValue(t *testing.T) {
	v, err := FractionValue("3/4")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, v, 1e-12)

	v, err = FractionValue("1,000/8")
	require.NoError(t, err)
	assert.InDelta(t, 125.0, v, 1e-12)

	_, err = FractionValue("3/0")
	assert.Error(t, err)

	_, err = FractionValue("three/4")
	assert.ErrorIs(t, err, ErrNotFraction)
}

func TestParseNumber(t *testing.T) {
	v, ok := ParseNumber("1,234.5")
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)

	_, ok = ParseNumber("Inf")
	assert.False(t, ok)
	_, ok = ParseNumber("1.2.3")
	assert.False(t, ok)
}

func TestLoadStopWords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("The\nof\n\n"), 0o644))

	sw := LoadStopWords(path)
	for _, w := range []string{"The", "the", "THE", "of", "OF"} {
		assert.True(t, sw.Contains(w), w)
	}
	assert.False(t, sw.Contains("apple"))
}

func TestLoadStopWords_MissingFileYieldsEmptySet(t *testing.T) {
	sw := LoadStopWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Empty(t, sw)
}

func TestLoadStopWords_EmptyPathUsesBuiltIn(t *testing.T) {
	sw := LoadStopWords("")
	assert.True(t, sw.Contains("the"))
	assert.True(t, sw.Contains("THE"))
}

func TestStemmer(t *testing.T) {
	on := NewStemmer(true)
	assert.Equal(t, "run", on.Stem("running"))
	assert.Equal(t, "index", on.Stem("indexing"))

	off := NewStemmer(false)
	assert.Equal(t, "running", off.Stem("running"))
}
