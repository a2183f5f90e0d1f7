package checker

import (
	"strings"

	"github.com/blevesearch/segment"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TokenKind classifies a token produced by the tokenizer.
type TokenKind int

const (
	Word TokenKind = iota
	Number
	Punctuation
)

func (k TokenKind) String() string {
	switch k {
	case Word:
		return "word"
	case Number:
		return "number"
	default:
		return "punctuation"
	}
}

// Token is one word, number or punctuation mark of the input text.
// Original is the token exactly as it appears in the text; Stem is the
// lowercased, stemmed form used for matching.
type Token struct {
	Original string
	Stem     string
	Kind     TokenKind
}

// Normalize tokenizes text on Unicode word boundaries and stems every word
// token with the stemmer of the given language.
func Normalize(text, language string) ([]Token, error) {
	lang, err := ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	return lang.normalize(text), nil
}

// StemPhrase stems every word of phrase and joins the stems with single spaces.
// A phrase without tokens stems to the empty string.
func StemPhrase(phrase, language string) (string, error) {
	lang, err := ParseLanguage(language)
	if err != nil {
		return "", err
	}
	return lang.stemPhrase(phrase), nil
}

func (l Language) normalize(text string) []Token {
	raw := tokenize(text)
	if len(raw) == 0 {
		return nil
	}

	// A Caser is stateful, one per call.
	lower := cases.Lower(l.tag())
	tokens := make([]Token, len(raw))
	for i, rt := range raw {
		tokens[i] = Token{
			Original: rt.text,
			Stem:     l.stemToken(lower, rt),
			Kind:     rt.kind,
		}
	}
	return tokens
}

func (l Language) stemPhrase(phrase string) string {
	tokens := l.normalize(phrase)
	stems := make([]string, len(tokens))
	for i, t := range tokens {
		stems[i] = t.Stem
	}
	return strings.Join(stems, " ")
}

func (l Language) stemToken(lower cases.Caser, rt rawToken) string {
	w := norm.NFC.String(lower.String(rt.text))
	if rt.kind != Word {
		return w
	}
	if s := l.stem(w); s != "" {
		return s
	}
	return w
}

type rawToken struct {
	text string
	kind TokenKind
}

// tokenize splits text into UAX#29 word segments. Whitespace is dropped,
// every other non-word segment becomes a punctuation token.
func tokenize(text string) []rawToken {
	if text == "" {
		return nil
	}

	var out []rawToken
	seg := segment.NewWordSegmenter(strings.NewReader(text))
	for seg.Segment() {
		s := string(seg.Bytes())
		switch seg.Type() {
		case segment.Letter, segment.Kana, segment.Ideo:
			out = append(out, rawToken{text: s, kind: Word})
		case segment.Number:
			out = append(out, rawToken{text: s, kind: Number})
		default:
			if strings.TrimSpace(s) == "" {
				continue
			}
			out = append(out, rawToken{text: s, kind: Punctuation})
		}
	}
	if err := seg.Err(); err != nil {
		// The untokenized rest of the text ends up in the trailing plain segment.
		log.Warnf("[checker] tokenizer stopped after %d tokens: %v", len(out), err)
	}
	return out
}
