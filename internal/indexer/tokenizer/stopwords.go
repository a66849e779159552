package tokenizer

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// StopWords is a read-only set of words excluded from indexing. Every word is
// stored in its original, lower-case and upper-case spelling.
type StopWords map[string]struct{}

// DefaultStopWords returns the built-in English list.
func DefaultStopWords() StopWords {
	sw := make(StopWords, len(defaultStopWords)*3)
	for _, w := range defaultStopWords {
		sw.add(w)
	}
	return sw
}

// LoadStopWords reads one word per line from path. An empty path selects the
// built-in list. A missing or unreadable file is logged and yields an empty
// set; indexing proceeds without stop-word filtering.
func LoadStopWords(path string) StopWords {
	if path == "" {
		return DefaultStopWords()
	}
	sw, err := readStopWords(path)
	if err != nil {
		slog.Default().With("component", "tokenizer").Warn("stop-word file unavailable, continuing without stop words",
			"path", path, "error", err)
		return StopWords{}
	}
	return sw
}

func readStopWords(path string) (StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stop-word file: %w", err)
	}
	defer f.Close()

	sw := StopWords{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			sw.add(w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading stop-word file: %w", err)
	}
	return sw, nil
}

func (sw StopWords) add(w string) {
	sw[w] = struct{}{}
	sw[strings.ToLower(w)] = struct{}{}
	sw[strings.ToUpper(w)] = struct{}{}
}

func (sw StopWords) Contains(w string) bool {
	_, ok := sw[w]
	return ok
}
