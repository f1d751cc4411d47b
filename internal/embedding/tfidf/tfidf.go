package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
)

var (
	errNotPrepared = errors.New("tfidf embedder not prepared")
	errEmptyCorpus = errors.New("empty corpus for TF-IDF prepare")
	errNoTerms     = errors.New("no tokens found in corpus")
)

// Embedder vectorizes text against the vocabulary fixed by Prepare. Query
// terms outside that vocabulary are ignored.
type Embedder struct {
	tokenizer *Tokenizer
	terms     map[string]int
	idf       []float64
}

// NewEmbedder creates an unprepared embedder using the default stopwords.
func NewEmbedder() *Embedder {
	return &Embedder{tokenizer: NewTokenizer(Stopwords)}
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare computes smoothed IDF weights, ln((1+n)/(1+df))+1, over corpus.
// Terms are assigned dimensions in sorted order so two embedders prepared
// on the same corpus agree.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errEmptyCorpus
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for term := range termCounts(e.tokenizer.Tokens(text)) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errNoTerms
	}
	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	n := float64(len(corpus))
	e.terms = make(map[string]int, len(vocab))
	e.idf = make([]float64, len(vocab))
	for i, term := range vocab {
		e.terms[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Dimension is the vocabulary size, zero before Prepare.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed returns the L2-normalised TF-IDF vector of text. Text without any
// known term yields a zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.terms == nil {
		return nil, errNotPrepared
	}
	vec := make([]float64, len(e.idf))
	known := 0
	counts := make(map[int]int)
	for _, tok := range e.tokenizer.Tokens(text) {
		if i, ok := e.terms[tok]; ok {
			counts[i]++
			known++
		}
	}
	if known == 0 {
		return vec, nil
	}
	var sq float64
	for i, c := range counts {
		w := float64(c) / float64(known) * e.idf[i]
		vec[i] = w
		sq += w * w
	}
	norm := math.Sqrt(sq)
	for i := range counts {
		vec[i] /= norm
	}
	return vec, nil
}

func termCounts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}
