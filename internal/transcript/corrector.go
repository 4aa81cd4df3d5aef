// Package transcript cleans up speech-to-text output before it is
// interpreted. Recognisers regularly mishear crypto asset names ("salana",
// "cardona", "poke a dot"); the [Corrector] aligns such spans with a known
// vocabulary so keyword matching downstream sees the intended name.
package transcript

import (
	"strings"

	"github.com/MrWong99/bit10voice/internal/transcript/phonetic"
)

const (
	defaultMinLength = 4
	maxWindow        = 3
)

// Correction records one substitution.
type Correction struct {
	// Original is the span as heard.
	Original string

	// Corrected is the vocabulary term that replaced it.
	Corrected string

	// Confidence is the matcher's similarity score in [0, 1].
	Confidence float64
}

// CorrectorOption configures a [Corrector].
type CorrectorOption func(*Corrector)

// WithProtected lists words that are never replaced, typically the
// interpreter's own keywords.
func WithProtected(words ...string) CorrectorOption {
	return func(c *Corrector) {
		for _, w := range words {
			c.protected[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithMinLength sets the minimum span length, in letters, considered for
// correction. Shorter spans are left alone. Default: 4.
func WithMinLength(n int) CorrectorOption {
	return func(c *Corrector) { c.minLength = n }
}

// Corrector rewrites spans of a transcript that sound like a vocabulary term.
// It is safe for concurrent use.
type Corrector struct {
	matcher   *phonetic.Matcher
	known     map[string]struct{}
	protected map[string]struct{}
	minLength int
}

// NewCorrector returns a Corrector over m's vocabulary.
func NewCorrector(m *phonetic.Matcher, opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		matcher:   m,
		known:     make(map[string]struct{}),
		protected: make(map[string]struct{}),
		minLength: defaultMinLength,
	}
	for _, v := range m.Vocabulary() {
		for _, tok := range strings.Fields(strings.ToLower(v)) {
			c.known[tok] = struct{}{}
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct returns text with misheard spans replaced by the lower-cased
// vocabulary term, and the list of substitutions. Windows of up to three
// words are tried, longest first, so "poke a dot" can become "polkadot".
// Spans containing a known or protected word are never rewritten.
func (c *Corrector) Correct(text string) (string, []Correction) {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	var corrections []Correction

	for i := 0; i < len(words); {
		n, res, ok := c.matchAt(words, i)
		if !ok {
			out = append(out, words[i])
			i++
			continue
		}
		original := strings.Join(words[i:i+n], " ")
		corrected := strings.ToLower(res.Term)
		out = append(out, corrected)
		corrections = append(corrections, Correction{Original: original, Corrected: corrected, Confidence: res.Score})
		i += n
	}
	if len(corrections) == 0 {
		return text, nil
	}
	return strings.Join(out, " "), corrections
}

func (c *Corrector) matchAt(words []string, i int) (int, phonetic.Result, bool) {
	for n := min(maxWindow, len(words)-i); n >= 1; n-- {
		span := make([]string, n)
		letters := 0
		skip := false
		for j := range n {
			w := normalize(words[i+j])
			if _, ok := c.known[w]; ok {
				skip = true
				break
			}
			if _, ok := c.protected[w]; ok {
				skip = true
				break
			}
			span[j] = w
			letters += len(w)
		}
		if skip || letters < c.minLength {
			continue
		}
		// Multi-word spans are compared as one run of letters so a single
		// matching token does not swallow its neighbours.
		res, ok := c.matcher.Match(strings.Join(span, ""))
		if ok {
			return n, res, true
		}
	}
	return 0, phonetic.Result{}, false
}

// normalize lower-cases w and strips surrounding punctuation.
func normalize(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}))
}
