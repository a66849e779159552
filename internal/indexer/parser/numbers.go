package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
)

const (
	thousand = 1e3
	million  = 1e6
	billion  = 1e9
)

var multipliers = map[string]float64{
	"thousand": thousand,
	"million":  million,
	"billion":  billion,
}

// Percent recognises "6%", "6 percent" and "6 percentage", all as "6%".
type Percent struct{}

func (Percent) Name() string { return NamePercent }

func (Percent) Match(tokens []string, i int) (string, int) {
	kind, norm := tokenizer.Classify(tokens[i])
	switch kind {
	case tokenizer.KindPercent:
		v, ok := tokenizer.ParseNumber(strings.TrimSuffix(norm, "%"))
		if !ok {
			return "", 0
		}
		return formatNumber(v) + "%", 1
	case tokenizer.KindNumber:
		if i+1 >= len(tokens) || tokenizer.EndsSentence(tokens[i]) {
			return "", 0
		}
		switch strings.ToLower(tokenizer.Normalize(tokens[i+1])) {
		case "percent", "percentage":
			v, _ := tokenizer.ParseNumber(norm)
			return formatNumber(v) + "%", 2
		}
	}
	return "", 0
}

// Numbers scales plain numbers to K, M or B ("1,500,000" -> "1.5M"), applies
// a following Thousand/Million/Billion, keeps mixed fractions ("35 3/4")
// together and records bare fractions as written.
type Numbers struct{}

func (Numbers) Name() string { return NameNumbers }

func (Numbers) Match(tokens []string, i int) (string, int) {
	kind, norm := tokenizer.Classify(tokens[i])
	switch kind {
	case tokenizer.KindFraction:
		if _, err := tokenizer.FractionValue(norm); err != nil {
			return "", 0
		}
		return norm, 1
	case tokenizer.KindNumber:
	default:
		return "", 0
	}

	v, ok := tokenizer.ParseNumber(norm)
	if !ok {
		return "", 0
	}
	if i+1 < len(tokens) && !tokenizer.EndsSentence(tokens[i]) {
		nextKind, next := tokenizer.Classify(tokens[i+1])
		if nextKind == tokenizer.KindFraction {
			if _, err := tokenizer.FractionValue(next); err == nil {
				return formatNumber(v) + " " + next, 2
			}
		}
		if mult, ok := multipliers[strings.ToLower(next)]; ok {
			return scale(v * mult), 2
		}
	}
	return scale(v), 1
}

func scale(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= billion:
		return formatNumber(v/billion) + "B"
	case abs >= million:
		return formatNumber(v/million) + "M"
	case abs >= thousand:
		return formatNumber(v/thousand) + "K"
	default:
		return formatNumber(v)
	}
}

// formatNumber rounds to three decimals and drops trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
