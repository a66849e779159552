// Package index defines postings, their "docId#freq#parser" string encoding
// and the worker-local term buffer that accumulates them between flushes.
package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
)

const (
	EntrySep = ";"
	FieldSep = "#"
)

// Posting is one (term, document) record.
type Posting struct {
	DocID     string
	Frequency int
	Parser    string
}

func (p Posting) String() string {
	return p.DocID + FieldSep + strconv.Itoa(p.Frequency) + FieldSep + p.Parser
}

type PostingList []Posting

// String encodes the list as semicolon separated entries.
func (pl PostingList) String() string {
	var b strings.Builder
	for i, p := range pl {
		if i > 0 {
			b.WriteString(EntrySep)
		}
		b.WriteString(p.String())
	}
	return b.String()
}

// ParsePostingList decodes an encoded list. Empty entries are ignored; any
// entry that is not docId#freq#parser with a positive frequency fails the
// whole decode with ErrMalformedPosting.
func ParsePostingList(s string) (PostingList, error) {
	if s == "" {
		return nil, nil
	}
	raw := strings.Split(s, EntrySep)
	pl := make(PostingList, 0, len(raw))
	for _, entry := range raw {
		if entry == "" {
			continue
		}
		p, err := ParsePosting(entry)
		if err != nil {
			return nil, err
		}
		pl = append(pl, p)
	}
	return pl, nil
}

func ParsePosting(entry string) (Posting, error) {
	fields := strings.Split(entry, FieldSep)
	if len(fields) != 3 || fields[0] == "" {
		return Posting{}, fmt.Errorf("%w: entry %q", apperrors.ErrMalformedPosting, entry)
	}
	freq, err := strconv.Atoi(fields[1])
	if err != nil || freq < 1 {
		return Posting{}, fmt.Errorf("%w: frequency in %q", apperrors.ErrMalformedPosting, entry)
	}
	return Posting{DocID: fields[0], Frequency: freq, Parser: fields[2]}, nil
}

// EntryCount is the document frequency of an encoded list.
func EntryCount(s string) int {
	n := 0
	for _, entry := range strings.Split(s, EntrySep) {
		if entry != "" {
			n++
		}
	}
	return n
}

// PostingSet keeps at most one Posting per document in first-seen order.
// Adding a posting for a known document sums the frequency and keeps the
// parser name recorded first.
type PostingSet struct {
	entries []Posting
	byDoc   map[string]int
}

func NewPostingSet() *PostingSet {
	return &PostingSet{byDoc: make(map[string]int)}
}

func (s *PostingSet) Add(p Posting) {
	if i, ok := s.byDoc[p.DocID]; ok {
		s.entries[i].Frequency += p.Frequency
		return
	}
	s.byDoc[p.DocID] = len(s.entries)
	s.entries = append(s.entries, p)
}

// Len is the document frequency.
func (s *PostingSet) Len() int { return len(s.entries) }

// TotalFrequency sums the frequency over every document.
func (s *PostingSet) TotalFrequency() int {
	total := 0
	for _, p := range s.entries {
		total += p.Frequency
	}
	return total
}

func (s *PostingSet) Get(docID string) (Posting, bool) {
	i, ok := s.byDoc[docID]
	if !ok {
		return Posting{}, false
	}
	return s.entries[i], true
}

// HasParser reports whether any posting was produced by parser.
func (s *PostingSet) HasParser(parser string) bool {
	for _, p := range s.entries {
		if p.Parser == parser {
			return true
		}
	}
	return false
}

// List returns a copy of the postings in insertion order.
func (s *PostingSet) List() PostingList {
	out := make(PostingList, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *PostingSet) String() string { return PostingList(s.entries).String() }

// TermEntry pairs a term with its postings sorted by document id.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// SortedEntries flattens sets into TermEntries ordered by term, with each
// posting list ordered by document id.
func SortedEntries(sets map[string]*PostingSet) []TermEntry {
	entries := make([]TermEntry, 0, len(sets))
	for term, set := range sets {
		postings := set.List()
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
