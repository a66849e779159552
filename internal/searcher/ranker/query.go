package ranker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/errors"
)

// QueryTerm is one decoded "frequency#weight" query value.
type QueryTerm struct {
	Frequency int     `json:"frequency"`
	Weight    float64 `json:"weight"`
}

// QueryContext accumulates query terms for ranking calls. Merging a term
// that is already present adds to its frequency and weight. A context is
// owned by one caller; share it across calls only when accumulation is
// wanted, and Reset it between unrelated queries.
type QueryContext struct {
	terms map[string]QueryTerm
}

func NewQueryContext() *QueryContext {
	return &QueryContext{terms: make(map[string]QueryTerm)}
}

// Merge decodes query and folds it in. Nothing is applied if any value is
// malformed.
func (qc *QueryContext) Merge(query map[string]string) error {
	decoded := make(map[string]QueryTerm, len(query))
	for term, raw := range query {
		qt, err := ParseQueryTerm(raw)
		if err != nil {
			return fmt.Errorf("term %q: %w", term, err)
		}
		decoded[term] = qt
	}
	for term, qt := range decoded {
		cur := qc.terms[term]
		cur.Frequency += qt.Frequency
		cur.Weight += qt.Weight
		qc.terms[term] = cur
	}
	return nil
}

// Weight is the accumulated query weight of term; ok is false when the
// term was never merged.
func (qc *QueryContext) Weight(term string) (weight float64, ok bool) {
	qt, ok := qc.terms[term]
	return qt.Weight, ok
}

func (qc *QueryContext) Len() int { return len(qc.terms) }

func (qc *QueryContext) Reset() {
	clear(qc.terms)
}

// ParseQueryTerm decodes "frequency#weight".
func ParseQueryTerm(raw string) (QueryTerm, error) {
	freqStr, weightStr, ok := strings.Cut(raw, index.FieldSep)
	if !ok {
		return QueryTerm{}, fmt.Errorf("%w: %q", apperrors.ErrMalformedQuery, raw)
	}
	freq, err := strconv.Atoi(freqStr)
	if err != nil || freq < 0 {
		return QueryTerm{}, fmt.Errorf("%w: frequency in %q", apperrors.ErrMalformedQuery, raw)
	}
	weight, err := strconv.ParseFloat(weightStr, 64)
	if err != nil {
		return QueryTerm{}, fmt.Errorf("%w: weight in %q", apperrors.ErrMalformedQuery, raw)
	}
	return QueryTerm{Frequency: freq, Weight: weight}, nil
}

// FormatQueryTerm is the inverse of ParseQueryTerm.
func FormatQueryTerm(freq int, weight float64) string {
	return strconv.Itoa(freq) + index.FieldSep + strconv.FormatFloat(weight, 'f', -1, 64)
}
