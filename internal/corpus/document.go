// Package corpus holds the Document type fed to the parser pipeline and the
// reader that walks a corpus directory and extracts TREC-style <DOC> records.
package corpus

import (
	"maps"
	"strconv"
	"strings"
)

// Document is one corpus record. It is owned by a single parser from the
// moment it is dequeued until its DocumentInfo has been produced, so it
// carries no locking.
type Document struct {
	ID   string
	Text string

	tokens   []string
	terms    map[string]int
	entities map[string]int
}

// NewDocument splits text on white space; the resulting token slice is the
// stream every extractor consumes and its length is the document length.
func NewDocument(id, text string) *Document {
	return &Document{
		ID:       id,
		Text:     text,
		tokens:   strings.Fields(text),
		terms:    make(map[string]int),
		entities: make(map[string]int),
	}
}

func (d *Document) Tokens() []string { return d.tokens }

// Length is the number of raw white-space separated tokens.
func (d *Document) Length() int { return len(d.tokens) }

// AddTerm counts one occurrence of term. Entity terms are also counted in
// the entity map that ends up in the document store.
func (d *Document) AddTerm(term string, entity bool) {
	if term == "" {
		return
	}
	d.terms[term]++
	if entity {
		d.entities[term]++
	}
}

// Entities returns a copy of the per-document entity counts.
func (d *Document) Entities() map[string]int { return maps.Clone(d.entities) }

// Equal implements the queue's duplicate rule: both documents have at least
// one token, the same first token and the same number of tokens. Ids and the
// remaining text are not compared.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return false
	}
	if d == o {
		return true
	}
	if len(d.tokens) == 0 || len(o.tokens) == 0 {
		return false
	}
	return len(d.tokens) == len(o.tokens) && d.tokens[0] == o.tokens[0]
}

// Key returns a string that is equal for two documents exactly when Equal
// holds. Documents without tokens have no key and are never duplicates.
func (d *Document) Key() (string, bool) {
	if d == nil || len(d.tokens) == 0 {
		return "", false
	}
	return strconv.Itoa(len(d.tokens)) + "\x00" + d.tokens[0], true
}
