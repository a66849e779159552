package segment

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []index.TermEntry {
	return []index.TermEntry{
		{Term: "BANK OF JAPAN", Postings: index.PostingList{
			{DocID: "d1", Frequency: 2, Parser: "entity"},
			{DocID: "d2", Frequency: 1, Parser: "entity"},
		}},
		{Term: "bank", Postings: index.PostingList{
			{DocID: "d1", Frequency: 3, Parser: "words"},
		}},
	}
}

func TestWriteRead(t *testing.T) {
	dir := VariantDir(t.TempDir(), true)
	path, err := NewWriter(dir, "entity").Write(sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.Terms())
	assert.Equal(t, uint32(2), r.DocCount())

	de, ok := r.lookup("BANK OF JAPAN")
	require.True(t, ok)
	assert.True(t, de.Entity)
	assert.Equal(t, 2, de.DocFreq)
	assert.Equal(t, 3, de.TotalFreq)

	raw, err := r.postings("bank")
	require.NoError(t, err)
	assert.Equal(t, "d1#3#words", raw)

	raw, err = r.postings("missing")
	require.NoError(t, err)
	assert.Empty(t, raw)

	var terms []string
	require.NoError(t, r.ForEach(func(de DictEntry, pl index.PostingList) error {
		terms = append(terms, de.Term)
		assert.Len(t, pl, de.DocFreq)
		return nil
	}))
	assert.Equal(t, []string{"BANK OF JAPAN", "bank"}, terms)
}

func TestWrite_EmptyDictionary(t *testing.T) {
	path, err := NewWriter(t.TempDir(), "entity").Write(nil)
	require.NoError(t, err)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Zero(t, r.Terms())
}

func TestOpenReader_DetectsCorruption(t *testing.T) {
	path, err := NewWriter(t.TempDir(), "entity").Write(sampleEntries())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-FooterSize-2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenReader(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpenReader_RejectsBadSections(t *testing.T) {
	cases := map[string]func(hb []byte){
		"negative dictionary size": func(hb []byte) {
			binary.LittleEndian.PutUint64(hb[24:32], ^uint64(0))
		},
		"dictionary past end of file": func(hb []byte) {
			binary.LittleEndian.PutUint64(hb[24:32], 1<<40)
		},
		"dictionary inside header": func(hb []byte) {
			binary.LittleEndian.PutUint64(hb[16:24], 8)
		},
		"posting section overlaps dictionary": func(hb []byte) {
			binary.LittleEndian.PutUint64(hb[40:48], 1<<20)
		},
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			path, err := NewWriter(t.TempDir(), "entity").Write(sampleEntries())
			require.NoError(t, err)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			corrupt(data[:HeaderSize])
			require.NoError(t, os.WriteFile(path, data, 0o644))

			_, err = OpenReader(path)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestRead_RejectsBlockOutsidePostings(t *testing.T) {
	path, err := NewWriter(t.TempDir(), "entity").Write(sampleEntries())
	require.NoError(t, err)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.read(DictEntry{Term: "bank", PostOffset: 0, PostLen: -1})
	assert.ErrorIs(t, err, ErrCorrupt)
	_, err = r.read(DictEntry{Term: "bank", PostOffset: r.header.PostSize, PostLen: 1})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestVariantDir(t *testing.T) {
	assert.Equal(t, filepath.Join("root", "stemmed"), VariantDir("root", true))
	assert.Equal(t, filepath.Join("root", "unstemmed"), VariantDir("root", false))
}
