// Package phonetic matches misheard words against a fixed vocabulary, such as
// the names of tracked crypto assets, using Double Metaphone codes combined
// with Jaro-Winkler similarity.
//
// A vocabulary term is a candidate when its phonetic codes overlap those of
// the input; among candidates the highest Jaro-Winkler score wins if it clears
// the phonetic threshold. Without any phonetic candidate the input may still
// match on spelling alone, against the stricter fuzzy threshold.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.90
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a term whose
// phonetic codes overlap the input. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) { m.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a term matched
// on spelling alone. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// Result is a successful match.
type Result struct {
	// Term is the vocabulary entry as supplied to [New].
	Term string

	// Score is the Jaro-Winkler similarity in [0, 1].
	Score float64

	// Phonetic reports whether the match came from overlapping codes rather
	// than spelling alone.
	Phonetic bool
}

type term struct {
	text   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	terms             []term
}

// New returns a Matcher over vocab. Phonetic codes are computed once here.
func New(vocab []string, opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	for _, v := range vocab {
		lower := strings.ToLower(strings.TrimSpace(v))
		if lower == "" {
			continue
		}
		tokens := strings.Fields(lower)
		m.terms = append(m.terms, term{text: v, lower: lower, tokens: tokens, codes: codes(tokens)})
	}
	return m
}

// Vocabulary returns the terms the Matcher was built with, blanks removed.
func (m *Matcher) Vocabulary() []string {
	out := make([]string, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.text
	}
	return out
}

// Match returns the vocabulary term closest to word, which may be a single
// word or a short phrase.
func (m *Matcher) Match(word string) (Result, bool) {
	lower := strings.ToLower(strings.TrimSpace(word))
	if lower == "" || len(m.terms) == 0 {
		return Result{}, false
	}
	tokens := strings.Fields(lower)
	in := codes(tokens)

	var best Result
	for _, t := range m.terms {
		score := similarity(tokens, t.tokens, lower, t.lower)
		if overlaps(in, t.codes) {
			if score >= m.phoneticThreshold && (!best.Phonetic || score > best.Score) {
				best = Result{Term: t.text, Score: score, Phonetic: true}
			}
			continue
		}
		if !best.Phonetic && score >= m.fuzzyThreshold && score > best.Score {
			best = Result{Term: t.text, Score: score}
		}
	}
	return best, best.Term != ""
}

// codes returns the union of Double Metaphone codes of tokens, without empties.
func codes(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			out[p] = struct{}{}
		}
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// similarity is the best Jaro-Winkler score over the full strings, the
// strings with spaces removed, and every token pair.
func similarity(inTokens, termTokens []string, in, t string) float64 {
	score := matchr.JaroWinkler(in, t, false)
	if len(inTokens) > 1 || len(termTokens) > 1 {
		score = max(score, matchr.JaroWinkler(strings.Join(inTokens, ""), strings.Join(termTokens, ""), false))
	}
	for _, a := range inTokens {
		for _, b := range termTokens {
			score = max(score, matchr.JaroWinkler(a, b, false))
		}
	}
	return score
}
