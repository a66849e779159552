package segment

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/golang/snappy"
)

var ErrCorrupt = errors.New("corrupt dictionary file")

// Reader gives random access to the posting blocks of one dictionary file.
type Reader struct {
	file   *os.File
	header Header
	dict   []DictEntry
}

// OpenReader validates the header magic and the dictionary checksum.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary file: %w", err)
	}
	r, err := load(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat dictionary file: %w", err)
	}
	hb := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hb, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if magic := binary.LittleEndian.Uint32(hb[0:4]); magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", ErrCorrupt, magic)
	}
	h := Header{
		Magic:      MagicBytes,
		Version:    binary.LittleEndian.Uint32(hb[4:8]),
		TermCount:  binary.LittleEndian.Uint32(hb[8:12]),
		DocCount:   binary.LittleEndian.Uint32(hb[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(hb[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(hb[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(hb[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(hb[40:48])),
		CreatedAt:  int64(binary.LittleEndian.Uint64(hb[48:56])),
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	if err := h.validate(info.Size()); err != nil {
		return nil, err
	}

	dictBytes := make([]byte, h.DictSize)
	if _, err := f.ReadAt(dictBytes, h.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, h.DictOffset+h.DictSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc32.ChecksumIEEE(dictBytes) != want {
		return nil, fmt.Errorf("%w: dictionary checksum mismatch", ErrCorrupt)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	for _, de := range dict {
		if de.PostOffset < 0 || de.PostLen < 0 || de.PostOffset+int64(de.PostLen) > h.PostSize {
			return nil, fmt.Errorf("%w: postings of %q outside the posting section", ErrCorrupt, de.Term)
		}
	}
	return &Reader{file: f, header: h, dict: dict}, nil
}

// validate checks that every section lies inside a file of size bytes, in
// header, postings, dictionary, footer order.
func (h Header) validate(size int64) error {
	switch {
	case h.PostOffset < int64(HeaderSize) || h.PostSize < 0:
		return fmt.Errorf("%w: posting section at %d (+%d)", ErrCorrupt, h.PostOffset, h.PostSize)
	case h.DictSize < 0 || h.DictOffset < h.PostOffset+h.PostSize:
		return fmt.Errorf("%w: dictionary section at %d (+%d)", ErrCorrupt, h.DictOffset, h.DictSize)
	case h.DictOffset+h.DictSize+int64(FooterSize) > size:
		return fmt.Errorf("%w: sections end past file size %d", ErrCorrupt, size)
	}
	return nil
}

// lookup returns the dictionary entry for term.
func (r *Reader) lookup(term string) (DictEntry, bool) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return DictEntry{}, false
	}
	return r.dict[i], true
}

// postings returns the encoded posting string of term, or "" when absent.
func (r *Reader) postings(term string) (string, error) {
	de, ok := r.lookup(term)
	if !ok {
		return "", nil
	}
	return r.read(de)
}

func (r *Reader) read(de DictEntry) (string, error) {
	if de.PostLen < 0 || de.PostOffset < 0 || de.PostOffset+int64(de.PostLen) > r.header.PostSize {
		return "", fmt.Errorf("%w: postings of %q outside the posting section", ErrCorrupt, de.Term)
	}
	block := make([]byte, de.PostLen)
	if _, err := r.file.ReadAt(block, r.header.PostOffset+de.PostOffset); err != nil {
		return "", fmt.Errorf("reading postings for %q: %w", de.Term, err)
	}
	raw, err := snappy.Decode(nil, block)
	if err != nil {
		return "", fmt.Errorf("%w: postings for %q: %v", ErrCorrupt, de.Term, err)
	}
	return string(raw), nil
}

// ForEach decodes every term in dictionary order and calls fn with its
// entry and parsed postings. fn returning an error stops the iteration.
func (r *Reader) ForEach(fn func(DictEntry, index.PostingList) error) error {
	for _, de := range r.dict {
		raw, err := r.read(de)
		if err != nil {
			return err
		}
		pl, err := index.ParsePostingList(raw)
		if err != nil {
			return fmt.Errorf("term %q: %w", de.Term, err)
		}
		if err := fn(de, pl); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) Terms() int { return len(r.dict) }

// DocCount is the number of distinct documents the postings reference.
func (r *Reader) DocCount() uint32 { return r.header.DocCount }

func (r *Reader) Close() error {
	return r.file.Close()
}
