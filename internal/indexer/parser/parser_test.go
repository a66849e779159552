package parser

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/stretchr/testify/assert"
)

type match struct {
	term string
	n    int
}

func run(ex Extractor, text string) match {
	term, n := ex.Match(strings.Fields(text), 0)
	return match{term, n}
}

func TestDates(t *testing.T) {
	tests := []struct {
		in   string
		want match
	}{
		{"14 May", match{"05-14", 2}},
		{"May 14", match{"05-14", 2}},
		{"Dec 3,", match{"12-03", 2}},
		{"June 1994", match{"1994-06", 2}},
		{"may 14", match{"", 0}},
		{"14. May", match{"", 0}},
		{"32 May", match{"", 0}},
		{"May", match{"", 0}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, run(Dates{}, tt.in))
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   string
		want match
	}{
		{"6%", match{"6%", 1}},
		{"6.50%", match{"6.5%", 1}},
		{"6 percent", match{"6%", 2}},
		{"6 Percentage", match{"6%", 2}},
		{"6 points", match{"", 0}},
		{"six percent", match{"", 0}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, run(Percent{}, tt.in))
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want match
	}{
		{"999", match{"999", 1}},
		{"1,000", match{"1K", 1}},
		{"1,500,000", match{"1.5M", 1}},
		{"3.14159", match{"3.142", 1}},
		{"2 Billion", match{"2B", 2}},
		{"7 million", match{"7M", 2}},
		{"2,500 Thousand", match{"2.5M", 2}},
		{"35 3/4", match{"35 3/4", 2}},
		{"3/4", match{"3/4", 1}},
		{"1/0", match{"", 0}},
		{"word", match{"", 0}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, run(Numbers{}, tt.in))
		})
	}
}

func TestWords(t *testing.T) {
	w := Words{Stop: tokenizer.DefaultStopWords(), Stemmer: tokenizer.NewStemmer(false)}
	assert.Equal(t, match{"bank", 1}, run(w, "Bank,"))
	assert.Equal(t, match{"", 1}, run(w, "The"))
	assert.Equal(t, match{"", 1}, run(w, "&"))
	assert.Equal(t, match{"", 0}, run(w, "42"))

	stemmed := Words{Stop: tokenizer.DefaultStopWords(), Stemmer: tokenizer.NewStemmer(true)}
	assert.Equal(t, match{"run", 1}, run(stemmed, "Running,"))
}

func TestEntities(t *testing.T) {
	e := Entities{Stop: tokenizer.DefaultStopWords()}
	tests := []struct {
		in   string
		want match
	}{
		{"Bank Japan rose", match{"BANK JAPAN", 2}},
		{"Tokyo Stock Exchange", match{"TOKYO STOCK EXCHANGE", 3}},
		{"Tokyo Stock. Exchange", match{"TOKYO STOCK", 2}},
		{"Tokyo. Stock", match{"", 0}},
		{"Tokyo (Stock", match{"", 0}},
		{"Bank of Japan", match{"", 0}},
		{"The Bank", match{"", 0}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, run(e, tt.in))
		})
	}
}

func TestPipeline_Extract(t *testing.T) {
	text := "The Bank of Japan said on 14 May that rates rose 6 percent to 1,500,000 yen " +
		"in May 1994, up 35 3/4 points. Tokyo Stock Exchange"
	p := NewPipeline(tokenizer.DefaultStopWords(), tokenizer.NewStemmer(false))

	var got []string
	p.Extract(strings.Fields(text), func(term, parser string) {
		got = append(got, parser+":"+term)
	})

	assert.Equal(t, []string{
		"words:bank", "words:japan", "words:said",
		"dates:05-14",
		"words:rates", "words:rose",
		"percent:6%",
		"numbers:1.5M", "words:yen",
		"dates:1994-05",
		"words:up", "numbers:35 3/4", "words:points",
		"words:tokyo", "words:stock", "words:exchange",
		"entity:TOKYO STOCK EXCHANGE",
	}, got)
}

func TestPipeline_EmptyTokensSkipped(t *testing.T) {
	p := NewPipeline(tokenizer.StopWords{}, tokenizer.NewStemmer(false))
	var got []string
	p.Extract([]string{"--", "...", "ok"}, func(term, parser string) {
		got = append(got, term)
	})
	assert.Equal(t, []string{"ok"}, got)
}
