package index

// TermBuffer is a parser worker's private term -> postings buffer. It is
// handed to the dictionary on flush and then reset; it is never shared
// between goroutines.
type TermBuffer struct {
	terms map[string]*PostingSet
	size  int
}

func NewTermBuffer() *TermBuffer {
	return &TermBuffer{terms: make(map[string]*PostingSet)}
}

// Record counts one occurrence of term in docID. A repeat occurrence for
// the same document increments the existing entry.
func (b *TermBuffer) Record(term, docID, parser string) {
	set, ok := b.terms[term]
	if !ok {
		set = NewPostingSet()
		b.terms[term] = set
	}
	before := set.Len()
	set.Add(Posting{DocID: docID, Frequency: 1, Parser: parser})
	if set.Len() > before {
		b.size++
	}
}

// Len is the number of distinct terms buffered.
func (b *TermBuffer) Len() int { return len(b.terms) }

// Postings is the number of (term, document) entries buffered.
func (b *TermBuffer) Postings() int { return b.size }

// Entries serialises the buffer into the term -> posting string form the
// dictionary merges.
func (b *TermBuffer) Entries() map[string]string {
	out := make(map[string]string, len(b.terms))
	for term, set := range b.terms {
		out[term] = set.String()
	}
	return out
}

func (b *TermBuffer) Reset() {
	b.terms = make(map[string]*PostingSet)
	b.size = 0
}
