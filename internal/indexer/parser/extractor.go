// Package parser turns a document's raw token stream into index terms. Each
// Extractor recognises one kind of term (dates, percentages, numbers, words,
// entities) and records the extractor name next to the posting it produces.
package parser

import (
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
)

const (
	NameDates   = "dates"
	NamePercent = "percent"
	NameNumbers = "numbers"
	NameWords   = "words"
	NameEntity  = "entity"
)

// Extractor recognises a term starting at tokens[i]. It returns the number of
// tokens consumed, or 0 when it does not apply. A match may return an empty
// term to swallow tokens without recording anything (stop words).
type Extractor interface {
	Name() string
	Match(tokens []string, i int) (term string, n int)
}

// Pipeline runs extractors over a token stream in passes. Within a pass the
// first extractor that matches at a position claims those tokens; every pass
// walks the whole stream independently.
type Pipeline struct {
	passes [][]Extractor
}

// NewPipeline builds the standard passes: dates, percentages, numbers and
// words first, then a separate entity pass so that entity phrases are
// indexed on top of their individual words.
func NewPipeline(stop tokenizer.StopWords, stem tokenizer.Stemmer) *Pipeline {
	return NewPipelineWithPasses(
		[]Extractor{Dates{}, Percent{}, Numbers{}, Words{Stop: stop, Stemmer: stem}},
		[]Extractor{Entities{Stop: stop}},
	)
}

func NewPipelineWithPasses(passes ...[]Extractor) *Pipeline {
	return &Pipeline{passes: passes}
}

// Extract calls emit once per recognised term occurrence.
func (p *Pipeline) Extract(tokens []string, emit func(term, parser string)) {
	for _, pass := range p.passes {
		for i := 0; i < len(tokens); {
			n := 0
			for _, ex := range pass {
				var term string
				term, n = ex.Match(tokens, i)
				if n > 0 {
					if term != "" {
						emit(term, ex.Name())
					}
					break
				}
			}
			if n <= 0 {
				n = 1
			}
			i += n
		}
	}
}
