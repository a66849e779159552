package index

import (
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePostingList(t *testing.T) {
	pl, err := ParsePostingList("d1#3#words;d2#1#entity;")
	require.NoError(t, err)
	assert.Equal(t, PostingList{
		{DocID: "d1", Frequency: 3, Parser: "words"},
		{DocID: "d2", Frequency: 1, Parser: "entity"},
	}, pl)
	assert.Equal(t, "d1#3#words;d2#1#entity", pl.String())

	pl, err = ParsePostingList("")
	require.NoError(t, err)
	assert.Empty(t, pl)
}

func TestParsePostingList_Malformed(t *testing.T) {
	for _, s := range []string{"d1#3", "d1#x#words", "d1#0#words", "#1#words", "d1#1#w#extra"} {
		_, err := ParsePostingList(s)
		assert.ErrorIs(t, err, apperrors.ErrMalformedPosting, s)
	}
}

func TestEntryCount(t *testing.T) {
	assert.Equal(t, 0, EntryCount(""))
	assert.Equal(t, 2, EntryCount("a#1#w;b#2#w;"))
}

func TestPostingSet_KeepsFirstParser(t *testing.T) {
	s := NewPostingSet()
	s.Add(Posting{DocID: "d1", Frequency: 1, Parser: "numbers"})
	s.Add(Posting{DocID: "d1", Frequency: 2, Parser: "words"})
	s.Add(Posting{DocID: "d2", Frequency: 1, Parser: "words"})

	p, ok := s.Get("d1")
	require.True(t, ok)
	assert.Equal(t, 3, p.Frequency)
	assert.Equal(t, "numbers", p.Parser)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 4, s.TotalFrequency())
	assert.True(t, s.HasParser("words"))
	assert.False(t, s.HasParser("entity"))
}

func TestTermBuffer(t *testing.T) {
	b := NewTermBuffer()
	b.Record("bank", "d1", "words")
	b.Record("bank", "d1", "words")
	b.Record("bank", "d2", "words")
	b.Record("6%", "d1", "percent")

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 3, b.Postings())
	assert.Equal(t, map[string]string{
		"bank": "d1#2#words;d2#1#words",
		"6%":   "d1#1#percent",
	}, b.Entries())

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Entries())
}

func TestTermBuffer_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("N records of one pair give one entry with frequency N", prop.ForAll(
		func(n int) bool {
			b := NewTermBuffer()
			for i := 0; i < n; i++ {
				b.Record("term", "doc", "words")
			}
			pl, err := ParsePostingList(b.Entries()["term"])
			return err == nil && len(pl) == 1 && pl[0].Frequency == n
		},
		gen.IntRange(1, 500),
	))

	properties.Property("merging two sets sums frequencies without adding entries", prop.ForAll(
		func(a, b int) bool {
			s := NewPostingSet()
			s.Add(Posting{DocID: "doc", Frequency: a, Parser: "words"})
			s.Add(Posting{DocID: "doc", Frequency: b, Parser: "words"})
			p, _ := s.Get("doc")
			return s.Len() == 1 && p.Frequency == a+b
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, 1000),
	))

	properties.Property("encoding round-trips", prop.ForAll(
		func(docs []string) bool {
			s := NewPostingSet()
			for _, d := range docs {
				s.Add(Posting{DocID: d, Frequency: 1, Parser: "words"})
			}
			pl, err := ParsePostingList(s.String())
			return err == nil && len(pl) == s.Len() && EntryCount(s.String()) == s.Len()
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
