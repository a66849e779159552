// Package indexer holds the master dictionary: the process-wide term ->
// postings map that parser workers merge their buffers into, persisted per
// stemmed/unstemmed variant.
package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/metrics"
)

// EntityParser is the extractor name whose postings mark a term as an entity.
const EntityParser = "entity"

type Dictionary struct {
	mu            sync.RWMutex
	root          string
	minEntityDocs int
	terms         map[string]*index.PostingSet
	loaded        bool
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Dictionary)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dictionary) { d.metrics = m }
}

// WithMinEntityDocs sets how many documents an entity must appear in to be
// part of the corpus entity set.
func WithMinEntityDocs(n int) Option {
	return func(d *Dictionary) {
		if n > 0 {
			d.minEntityDocs = n
		}
	}
}

// NewDictionary creates an empty dictionary persisted under postingRoot.
func NewDictionary(postingRoot string, opts ...Option) *Dictionary {
	d := &Dictionary{
		root:          postingRoot,
		minEntityDocs: 2,
		terms:         make(map[string]*index.PostingSet),
		logger:        slog.Default().With("component", "dictionary"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Merge folds a worker buffer of term -> encoded postings into the
// dictionary. Every posting string is decoded before anything is applied, so
// a malformed buffer leaves the dictionary untouched.
func (d *Dictionary) Merge(buffer map[string]string) error {
	decoded := make(map[string]index.PostingList, len(buffer))
	for term, raw := range buffer {
		pl, err := index.ParsePostingList(raw)
		if err != nil {
			return fmt.Errorf("%w: term %q: %w", apperrors.ErrMergeFailed, term, err)
		}
		if len(pl) > 0 {
			decoded[term] = pl
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for term, pl := range decoded {
		set, ok := d.terms[term]
		if !ok {
			set = index.NewPostingSet()
			d.terms[term] = set
		}
		for _, p := range pl {
			set.Add(p)
		}
	}
	d.loaded = true
	d.observeSize()
	return nil
}

// Save writes the dictionary for the given variant.
func (d *Dictionary) Save(stemmed bool) error {
	d.mu.RLock()
	entries := index.SortedEntries(d.terms)
	d.mu.RUnlock()

	path, err := segment.NewWriter(segment.VariantDir(d.root, stemmed), EntityParser).Write(entries)
	if err != nil {
		return fmt.Errorf("saving dictionary: %w", err)
	}
	d.logger.Info("dictionary saved", "path", path, "terms", len(entries), "stemmed", stemmed)
	return nil
}

// Load replaces the in-memory state with the persisted variant. Loading is
// repeatable; a missing file yields ErrNotLoaded.
func (d *Dictionary) Load(stemmed bool) error {
	path := filepath.Join(segment.VariantDir(d.root, stemmed), segment.FileName)
	r, err := segment.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: no dictionary at %s", apperrors.ErrNotLoaded, path)
		}
		return fmt.Errorf("loading dictionary: %w", err)
	}
	defer r.Close()

	terms := make(map[string]*index.PostingSet, r.Terms())
	err = r.ForEach(func(de segment.DictEntry, pl index.PostingList) error {
		set := index.NewPostingSet()
		for _, p := range pl {
			set.Add(p)
		}
		terms[de.Term] = set
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}

	d.mu.Lock()
	d.terms = terms
	d.loaded = true
	d.observeSize()
	d.mu.Unlock()
	d.logger.Debug("dictionary loaded", "path", path, "terms", len(terms), "documents", r.DocCount())
	return nil
}

// Reset drops every term.
func (d *Dictionary) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terms = make(map[string]*index.PostingSet)
	d.loaded = false
	d.observeSize()
}

func (d *Dictionary) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// CorpusSize is the number of distinct terms.
func (d *Dictionary) CorpusSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.terms)
}

// Postings returns the encoded posting list of term.
func (d *Dictionary) Postings(term string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.terms[term]
	if !ok {
		return "", false
	}
	return set.String(), true
}

func (d *Dictionary) DocumentFrequency(term string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if set, ok := d.terms[term]; ok {
		return set.Len()
	}
	return 0
}

// TotalTermFrequency sums term's frequency over the whole corpus.
func (d *Dictionary) TotalTermFrequency(term string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if set, ok := d.terms[term]; ok {
		return set.TotalFrequency()
	}
	return 0
}

// EntitiesInCorpus returns the terms produced by the entity extractor that
// occur in at least the configured number of documents.
func (d *Dictionary) EntitiesInCorpus() map[string]struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]struct{})
	for term, set := range d.terms {
		if set.Len() >= d.minEntityDocs && set.HasParser(EntityParser) {
			out[term] = struct{}{}
		}
	}
	return out
}

// Terms returns every term with its total frequency.
func (d *Dictionary) Terms() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.terms))
	for term, set := range d.terms {
		out[term] = set.TotalFrequency()
	}
	return out
}

// SortedTerms lists the terms starting with prefix alphabetically.
func (d *Dictionary) SortedTerms(prefix string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.terms))
	for term := range d.terms {
		if strings.HasPrefix(term, prefix) {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

func (d *Dictionary) observeSize() {
	if d.metrics != nil {
		d.metrics.DictionaryTerms.Set(float64(len(d.terms)))
	}
}
