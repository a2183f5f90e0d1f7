package checker

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"termcheck/pkg/models"
)

// DefaultFuzzyCutoff is the minimal similarity a typo must reach to be flagged.
const DefaultFuzzyCutoff = 0.8

// Confidence tells how a span was matched.
type Confidence string

const (
	Exact Confidence = "exact"
	Fuzzy Confidence = "fuzzy"
)

// Span is a range of token indices [Start, End) attributed to one term.
type Span struct {
	Start      int
	End        int
	Term       models.Term
	Confidence Confidence
}

// MatchOptions tune the fuzzy pass of Match.
type MatchOptions struct {
	// FuzzyCutoff is the minimal similarity in (0, 1]. Zero means DefaultFuzzyCutoff.
	FuzzyCutoff  float64
	DisableFuzzy bool
}

func (o MatchOptions) cutoff() float64 {
	if o.FuzzyCutoff <= 0 {
		return DefaultFuzzyCutoff
	}
	return o.FuzzyCutoff
}

// Match finds the terms of idx in tokens. The exact pass runs to completion
// before the fuzzy pass starts, and no token is ever claimed twice: longer
// terms win over shorter ones, exact matches win over fuzzy ones.
// The returned spans are sorted by Start.
func Match(tokens []Token, idx *Index, opts MatchOptions) []Span {
	if len(tokens) == 0 || idx == nil || len(idx.terms) == 0 {
		return nil
	}

	covered := make([]bool, len(tokens))
	spans := exactSpans(tokens, idx, covered)
	if !opts.DisableFuzzy {
		spans = append(spans, fuzzySpans(tokens, idx, covered, opts.cutoff())...)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

func exactSpans(tokens []Token, idx *Index, covered []bool) []Span {
	// stemmed is " s0 s1 ... sn ", seps[i] is the offset of the space before si.
	var b strings.Builder
	seps := make([]int, len(tokens))
	for i, t := range tokens {
		b.WriteByte(' ')
		seps[i] = b.Len() - 1
		b.WriteString(t.Stem)
	}
	b.WriteByte(' ')
	stemmed := b.String()

	var spans []Span
	for _, it := range idx.terms {
		needle := " " + it.Stem + " "
		from := 0
		for {
			at := strings.Index(stemmed[from:], needle)
			if at < 0 {
				break
			}
			at += from
			// The trailing space may open the next occurrence.
			from = at + len(needle) - 1

			start := sort.SearchInts(seps, at)
			if start >= len(seps) || seps[start] != at {
				continue
			}
			end := start + it.Words
			if end > len(tokens) || anyCovered(covered, start, end) {
				continue
			}

			for i := start; i < end; i++ {
				covered[i] = true
			}
			spans = append(spans, Span{Start: start, End: end, Term: it.Term, Confidence: Exact})
		}
	}
	return spans
}

func fuzzySpans(tokens []Token, idx *Index, covered []bool, cutoff float64) []Span {
	if len(idx.singles) == 0 {
		return nil
	}

	var spans []Span
	for i, t := range tokens {
		if covered[i] || t.Kind != Word {
			continue
		}

		best, bestSim := -1, 0.0
		for _, c := range idx.singles {
			if sim := similarity(t.Stem, idx.terms[c].Stem, cutoff); sim > bestSim {
				best, bestSim = c, sim
			}
		}
		if best < 0 || bestSim < cutoff {
			continue
		}

		covered[i] = true
		spans = append(spans, Span{Start: i, End: i + 1, Term: idx.terms[best].Term, Confidence: Fuzzy})
	}
	return spans
}

// similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
// Pairs whose length difference alone rules out the cutoff score zero.
func similarity(a, b string, cutoff float64) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest, diff := la, la-lb
	if lb > la {
		longest, diff = lb, lb-la
	}
	if longest == 0 {
		return 0
	}
	if 1-float64(diff)/float64(longest) < cutoff {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func anyCovered(covered []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if covered[i] {
			return true
		}
	}
	return false
}
