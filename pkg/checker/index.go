package checker

import (
	"sort"
	"strings"

	"termcheck/pkg/models"
)

// IndexedTerm is a dictionary term together with its pre-computed stem.
type IndexedTerm struct {
	Term  models.Term
	Stem  string
	Words int
}

// Index is an immutable, per-language view over the term dictionary.
// Terms are ordered by descending word count so that a multi-word term
// claims its tokens before any of its sub-phrases can.
type Index struct {
	language Language
	terms    []IndexedTerm
	singles  []int
}

// BuildIndex pre-stems the terms of the given language. Terms of other
// languages, terms with an empty stem and repeated surface forms are left out.
func BuildIndex(terms []models.Term, language string) (*Index, error) {
	lang, err := ParseLanguage(language)
	if err != nil {
		return nil, err
	}

	idx := &Index{language: lang}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		tl, err := ParseLanguage(t.Language)
		if err != nil || tl != lang {
			continue
		}
		if _, ok := seen[t.Surface]; ok {
			continue
		}
		seen[t.Surface] = struct{}{}

		stem := lang.stemPhrase(t.Surface)
		if stem == "" {
			continue
		}
		idx.terms = append(idx.terms, IndexedTerm{
			Term:  t,
			Stem:  stem,
			Words: strings.Count(stem, " ") + 1,
		})
	}

	sort.SliceStable(idx.terms, func(i, j int) bool {
		return idx.terms[i].Words > idx.terms[j].Words
	})
	for i, it := range idx.terms {
		if it.Words == 1 {
			idx.singles = append(idx.singles, i)
		}
	}

	return idx, nil
}

// Language returns the language the index was built for.
func (idx *Index) Language() Language {
	return idx.language
}

// Len returns the number of indexed terms.
func (idx *Index) Len() int {
	return len(idx.terms)
}

// OrderedTerms returns the indexed terms, longest first.
func (idx *Index) OrderedTerms() []IndexedTerm {
	out := make([]IndexedTerm, len(idx.terms))
	copy(out, idx.terms)
	return out
}

// AllStems returns the stems of OrderedTerms in the same order.
func (idx *Index) AllStems() []string {
	out := make([]string, len(idx.terms))
	for i, it := range idx.terms {
		out[i] = it.Stem
	}
	return out
}
