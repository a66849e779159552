package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
)

var months = map[string]int{
	"january": 1, "jan": 1, "february": 2, "feb": 2, "march": 3, "mar": 3,
	"april": 4, "apr": 4, "may": 5, "june": 6, "jun": 6, "july": 7, "jul": 7,
	"august": 8, "aug": 8, "september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10, "november": 11, "nov": 11, "december": 12, "dec": 12,
}

// Dates recognises "14 May" and "May 14" as "05-14", and "May 1994" as
// "1994-05". Month names must be capitalised so that "may" the verb is left
// to the word extractor.
type Dates struct{}

func (Dates) Name() string { return NameDates }

func (Dates) Match(tokens []string, i int) (string, int) {
	if i+1 >= len(tokens) || tokenizer.EndsSentence(tokens[i]) {
		return "", 0
	}
	first, second := tokenizer.Normalize(tokens[i]), tokenizer.Normalize(tokens[i+1])

	if day, ok := dayOf(first); ok {
		if m, ok := monthOf(second); ok {
			return fmt.Sprintf("%02d-%02d", m, day), 2
		}
		return "", 0
	}
	m, ok := monthOf(first)
	if !ok {
		return "", 0
	}
	if day, ok := dayOf(second); ok {
		return fmt.Sprintf("%02d-%02d", m, day), 2
	}
	if year, ok := yearOf(second); ok {
		return fmt.Sprintf("%04d-%02d", year, m), 2
	}
	return "", 0
}

func monthOf(s string) (int, bool) {
	if !tokenizer.IsCapitalized(s) {
		return 0, false
	}
	m, ok := months[strings.ToLower(s)]
	return m, ok
}

func dayOf(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > 31 {
		return 0, false
	}
	return d, true
}

func yearOf(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 {
		return 0, false
	}
	return y, true
}
