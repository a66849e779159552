package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
)

// Words records every remaining word lower-cased and, when enabled,
// stemmed. Stop words and tokens without letters are consumed silently.
type Words struct {
	Stop    tokenizer.StopWords
	Stemmer tokenizer.Stemmer
}

func (Words) Name() string { return NameWords }

func (w Words) Match(tokens []string, i int) (string, int) {
	kind, norm := tokenizer.Classify(tokens[i])
	if kind != tokenizer.KindWord {
		return "", 0
	}
	lower := strings.ToLower(norm)
	if !tokenizer.HasLetter(norm) || w.Stop.Contains(norm) || w.Stop.Contains(lower) {
		return "", 1
	}
	return w.Stemmer.Stem(lower), 1
}

// Entities recognises runs of two or more capitalised, non-stop-word tokens
// ("Bank of Japan" does not qualify, "Bank Japan" does) and records them
// upper-cased and space separated. Trailing punctuation on a token ends the
// run after that token; leading punctuation starts a new one.
type Entities struct {
	Stop tokenizer.StopWords
}

func (Entities) Name() string { return NameEntity }

func (e Entities) Match(tokens []string, i int) (string, int) {
	var parts []string
	for j := i; j < len(tokens); j++ {
		raw := tokens[j]
		if j > i && tokenizer.StartsWithPunctuation(raw) {
			break
		}
		kind, norm := tokenizer.Classify(raw)
		if kind != tokenizer.KindWord || !tokenizer.IsCapitalized(norm) || e.isStop(norm) {
			break
		}
		parts = append(parts, strings.ToUpper(norm))
		if tokenizer.EndsSentence(raw) {
			break
		}
	}
	if len(parts) < 2 {
		return "", 0
	}
	return strings.Join(parts, " "), len(parts)
}

func (e Entities) isStop(norm string) bool {
	return e.Stop.Contains(norm) || e.Stop.Contains(strings.ToLower(norm))
}
