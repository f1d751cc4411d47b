package tfidf

import (
	"strings"
	"unicode"
)

// Tokenizer lowercases text and splits it on anything that is not a letter
// or a digit. Apostrophes are separators, so elided French forms such as
// "l'installation" yield the article and the bare word; the article is then
// dropped as a stopword.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer(stopwords []string) *Tokenizer {
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[w] = struct{}{}
	}
	return &Tokenizer{stopwords: m}
}

// Tokens returns the indexable terms of text in order of appearance.
func (t *Tokenizer) Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := t.stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Stopwords covers English and French function words, plus the French
// elided articles left behind once "l'", "d'" or "qu'" are split off.
var Stopwords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	"le", "la", "les", "un", "une", "des", "du", "de", "et", "ou", "mais", "donc", "car", "ni", "que", "qui", "quoi", "dont", "où", "ce", "cet", "cette", "ces", "se", "sa", "son", "ses", "leur", "leurs", "au", "aux", "en", "dans", "par", "pour", "sur", "avec", "sans", "sous", "est", "sont", "être", "été", "il", "elle", "ils", "elles", "on", "nous", "vous", "je", "tu", "ne", "pas", "plus", "y",
	"l", "d", "qu", "c", "j", "n", "s", "m", "t", "jusqu", "lorsqu", "puisqu", "quoiqu",
}
