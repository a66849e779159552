package tokenizer

import (
	"github.com/kljensen/snowball/english"
)

// Stemmer reduces words to their Snowball English stem when enabled. The
// stemmed and unstemmed indexes are separate builds, so a Stemmer is fixed
// for the lifetime of a run.
type Stemmer struct {
	enabled bool
}

func NewStemmer(enabled bool) Stemmer {
	return Stemmer{enabled: enabled}
}

func (s Stemmer) Enabled() bool { return s.enabled }

// Stem returns word unchanged when stemming is disabled. word is expected to
// be lower-case already.
func (s Stemmer) Stem(word string) string {
	if !s.enabled || len(word) < 3 {
		return word
	}
	stemmed := english.Stem(word, false)
	if stemmed == "" {
		return word
	}
	return stemmed
}
