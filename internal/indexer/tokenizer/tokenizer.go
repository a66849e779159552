// Package tokenizer normalises raw corpus tokens into index terms. It strips
// boundary punctuation, classifies tokens (word, number, fraction, percent),
// converts fractions to decimals, filters stop-words and optionally stems.
package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the category a normalised token falls into.
type Kind int

const (
	KindEmpty Kind = iota
	KindWord
	KindNumber
	KindFraction
	KindPercent
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindWord:
		return "word"
	case KindNumber:
		return "number"
	case KindFraction:
		return "fraction"
	case KindPercent:
		return "percent"
	default:
		return "unknown"
	}
}

var ErrNotFraction = errors.New("token is not a fraction")

// punctuation is the boundary set stripped from both ends of a token.
var punctuation = map[rune]struct{}{
	',': {}, '.': {}, ';': {}, ':': {}, '?': {}, '(': {}, ')': {}, '"': {},
	'{': {}, '}': {}, '-': {}, ']': {}, '[': {}, '!': {}, '\t': {}, '\n': {},
	'|': {}, '*': {}, '\'': {}, '+': {}, '/': {}, '_': {}, '`': {},
}

// IsPunctuation reports whether r belongs to the boundary punctuation set.
func IsPunctuation(r rune) bool {
	_, ok := punctuation[r]
	return ok
}

// IsPunctuationBoundary reports whether the first or last character of token
// is boundary punctuation.
func IsPunctuationBoundary(token string) bool {
	if token == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(token)
	last, _ := utf8.DecodeLastRuneInString(token)
	return IsPunctuation(first) || IsPunctuation(last)
}

// Normalize strips boundary punctuation until none remains. It returns the
// empty string when nothing is left.
func Normalize(token string) string {
	return strings.TrimFunc(token, IsPunctuation)
}

// StartsWithPunctuation reports whether the first character of token is
// boundary punctuation.
func StartsWithPunctuation(token string) bool {
	first, _ := utf8.DecodeRuneInString(token)
	return token != "" && IsPunctuation(first)
}

// EndsSentence reports whether the raw token carries trailing punctuation
// that breaks a phrase (".", ",", ";" and similar).
func EndsSentence(token string) bool {
	if token == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(token)
	return IsPunctuation(last)
}

// Classify normalises token and reports its category together with the
// normalised text.
func Classify(token string) (Kind, string) {
	norm := Normalize(token)
	switch {
	case norm == "":
		return KindEmpty, ""
	case strings.HasSuffix(norm, "%") && isNumeric(strings.TrimSuffix(norm, "%")):
		return KindPercent, norm
	case IsFraction(norm):
		return KindFraction, norm
	case isNumeric(norm):
		return KindNumber, norm
	default:
		return KindWord, norm
	}
}

// IsFraction reports whether token has the shape N/M where both parts are
// numeric once thousands separators are removed.
func IsFraction(token string) bool {
	parts := strings.Split(token, "/")
	if len(parts) != 2 {
		return false
	}
	return isNumeric(parts[0]) && isNumeric(parts[1])
}

// FractionValue converts an N/M token into its decimal value.
func FractionValue(token string) (float64, error) {
	if !IsFraction(token) {
		return 0, fmt.Errorf("%w: %q", ErrNotFraction, token)
	}
	parts := strings.Split(token, "/")
	num, _ := ParseNumber(parts[0])
	den, _ := ParseNumber(parts[1])
	if den == 0 {
		return 0, fmt.Errorf("fraction %q has a zero denominator", token)
	}
	return num / den, nil
}

// ParseNumber parses a plain decimal number, ignoring thousands separators.
func ParseNumber(token string) (float64, bool) {
	if !isNumeric(token) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// isNumeric accepts an optional sign, digits with optional thousands
// separators and at most one decimal point. strconv alone would also accept
// "NaN", "Inf" and hex floats.
func isNumeric(s string) bool {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// IsCapitalized reports whether s starts with an upper-case letter.
func IsCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
