// Package analyzer provides the linguistic analysis capability used by tone
// classification. Two implementations exist: Basic, a dependency-free
// tokenizer that is always available, and Spacy, a client for the spaCy
// sidecar service. Callers depend only on the Analyzer interface.
package analyzer

import (
	"context"
	"regexp"
	"strings"
)

// Token is a single word-level unit of the analyzed text.
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Index int    `json:"i"`
}

// Sentence marks a sentence's byte range in the source text.
type Sentence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Analysis is the result of running an analyzer over a text. Fallback is set
// when the advanced analyzer was unavailable and the basic path served the
// request instead.
type Analysis struct {
	Tokens    []Token    `json:"tokens"`
	Sentences []Sentence `json:"sents"`
	Fallback  bool       `json:"fallback"`
}

// Analyzer is the linguistic analysis capability.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

var (
	tokenRe    = regexp.MustCompile(`[\p{L}\p{N}']+`)
	sentStopRe = regexp.MustCompile(`[.!?]+`)
)

// Basic is the always-available analyzer: whitespace-and-punctuation
// tokenization and naive sentence splitting. It never fails.
type Basic struct{}

func NewBasic() *Basic { return &Basic{} }

func (b *Basic) Name() string { return "basic" }

func (b *Basic) Analyze(_ context.Context, text string) (*Analysis, error) {
	a := &Analysis{}

	for i, loc := range tokenRe.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		a.Tokens = append(a.Tokens, Token{
			Text:  word,
			Lemma: strings.ToLower(word),
			POS:   "X",
			Index: i,
		})
	}

	start := 0
	for _, loc := range sentStopRe.FindAllStringIndex(text, -1) {
		if loc[1] > start {
			a.Sentences = append(a.Sentences, Sentence{Start: start, End: loc[1]})
		}
		start = loc[1]
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		a.Sentences = append(a.Sentences, Sentence{Start: start, End: len(text)})
	}

	return a, nil
}

// Fallback wraps an advanced analyzer with the basic path. An advanced
// failure is never surfaced to the caller; the basic result is returned with
// Fallback set so responses can report it.
type Fallback struct {
	advanced Analyzer
	basic    *Basic
}

func WithFallback(advanced Analyzer) *Fallback {
	return &Fallback{advanced: advanced, basic: NewBasic()}
}

func (f *Fallback) Name() string { return f.advanced.Name() + "+fallback" }

func (f *Fallback) Analyze(ctx context.Context, text string) (*Analysis, error) {
	a, err := f.advanced.Analyze(ctx, text)
	if err == nil {
		return a, nil
	}
	a, _ = f.basic.Analyze(ctx, text)
	a.Fallback = true
	return a, nil
}
