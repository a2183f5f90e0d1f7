package checker

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/german"
	"github.com/kljensen/snowball"
	"golang.org/x/text/language"
)

// ErrUnsupportedLanguage is returned when a language outside the supported set is requested.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is the canonical name of a supported language, as stored on terms.
type Language string

const (
	English Language = "english"
	German  Language = "german"
	French  Language = "french"
	Spanish Language = "spanish"
	Russian Language = "russian"
	Swedish Language = "swedish"
)

var languageNames = map[string]Language{
	"english": English, "en": English,
	"german": German, "de": German,
	"french": French, "fr": French,
	"spanish": Spanish, "es": Spanish,
	"russian": Russian, "ru": Russian,
	"swedish": Swedish, "sv": Swedish,
}

var languageTags = map[Language]language.Tag{
	English: language.English,
	German:  language.German,
	French:  language.French,
	Spanish: language.Spanish,
	Russian: language.Russian,
	Swedish: language.Swedish,
}

// ParseLanguage resolves a language name or ISO 639-1 code to its canonical form.
func ParseLanguage(s string) (Language, error) {
	l, ok := languageNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	return l, nil
}

// Languages returns every supported language in alphabetical order.
func Languages() []Language {
	out := make([]Language, 0, len(languageTags))
	for l := range languageTags {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l Language) tag() language.Tag {
	if t, ok := languageTags[l]; ok {
		return t
	}
	return language.Und
}

// stem reduces a lowercased word to its snowball stem.
// kljensen/snowball has no German stemmer, so German goes through snowballstem.
func (l Language) stem(word string) string {
	if l == German {
		env := snowballstem.NewEnv(word)
		german.Stem(env)
		return env.Current()
	}

	stemmed, err := snowball.Stem(word, string(l), false)
	if err != nil {
		return word
	}
	return stemmed
}
