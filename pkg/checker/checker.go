// Package checker flags sensitive terms in free-form text.
//
// Text is tokenized and stemmed (Normalize), matched against a per-language
// term index (BuildIndex, Match) and projected back onto the original text as
// plain and flagged segments (Segments). Checker keeps the current indexes and
// swaps them atomically on Reload, so readers never see a half-built index.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"termcheck/pkg/models"
)

// ErrNoIndex is returned by Check before the first successful Reload.
var ErrNoIndex = errors.New("term index not loaded")

// TermSource supplies the term dictionary of a language.
type TermSource interface {
	Terms(ctx context.Context, language string) ([]models.Term, error)
}

type Options struct {
	// Languages to keep an index for. Defaults to english and german.
	Languages    []string
	FuzzyCutoff  float64
	DisableFuzzy bool
}

// Result is the outcome of a check. Terms holds the term of every flagged
// segment, in the order the segments appear.
type Result struct {
	Segments []Segment     `json:"segments"`
	Terms    []models.Term `json:"terms"`
	Spans    []Span        `json:"-"`
}

type Checker struct {
	src   TermSource
	langs []Language
	opts  MatchOptions

	// reloadMu serializes reloads so a slow fetch never publishes over a newer one.
	reloadMu sync.Mutex
	snap     atomic.Pointer[snapshot]
}

type snapshot struct {
	indexes  map[Language]*Index
	loadedAt time.Time
}

// New returns a Checker with no index loaded yet; call Reload before Check.
func New(src TermSource, opts Options) (*Checker, error) {
	names := opts.Languages
	if len(names) == 0 {
		names = []string{string(English), string(German)}
	}

	c := &Checker{
		src:  src,
		opts: MatchOptions{FuzzyCutoff: opts.FuzzyCutoff, DisableFuzzy: opts.DisableFuzzy},
	}
	seen := make(map[Language]bool)
	for _, name := range names {
		l, err := ParseLanguage(name)
		if err != nil {
			return nil, err
		}
		if !seen[l] {
			seen[l] = true
			c.langs = append(c.langs, l)
		}
	}

	return c, nil
}

// Reload rebuilds the index of every configured language from the term
// source and publishes them together. On error the previous indexes stay.
func (c *Checker) Reload(ctx context.Context) error {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	next := &snapshot{
		indexes:  make(map[Language]*Index, len(c.langs)),
		loadedAt: time.Now(),
	}

	counts := make([]string, 0, len(c.langs))
	for _, l := range c.langs {
		terms, err := c.src.Terms(ctx, string(l))
		if err != nil {
			return fmt.Errorf("load %s terms: %w", l, err)
		}
		idx, err := BuildIndex(terms, string(l))
		if err != nil {
			return err
		}
		next.indexes[l] = idx
		counts = append(counts, fmt.Sprintf("%s:%d", l, idx.Len()))
	}

	c.snap.Store(next)
	log.Infof("[checker] term index reloaded (%s)", strings.Join(counts, ", "))
	return nil
}

// Languages returns the configured languages.
func (c *Checker) Languages() []Language {
	out := make([]Language, len(c.langs))
	copy(out, c.langs)
	return out
}

// LoadedAt returns the time of the last successful Reload, zero if none.
func (c *Checker) LoadedAt() time.Time {
	if s := c.snap.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// Index returns the current index snapshot of a language.
func (c *Checker) Index(language string) (*Index, error) {
	lang, err := ParseLanguage(language)
	if err != nil {
		return nil, err
	}

	s := c.snap.Load()
	if s == nil {
		return nil, ErrNoIndex
	}
	idx, ok := s.indexes[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", ErrUnsupportedLanguage, lang)
	}
	return idx, nil
}

// Check flags the terms of the given language in text.
func (c *Checker) Check(text, language string) (Result, error) {
	idx, err := c.Index(language)
	if err != nil {
		return Result{}, err
	}
	return CheckWithIndex(text, idx, c.opts), nil
}

// CheckWithIndex runs the whole pipeline against a caller-owned index. A nil
// index flags nothing.
func CheckWithIndex(text string, idx *Index, opts MatchOptions) Result {
	if idx == nil {
		return Result{Segments: []Segment{{Text: text}}, Terms: []models.Term{}}
	}

	tokens := idx.language.normalize(text)
	spans := Match(tokens, idx, opts)
	segments := Segments(text, tokens, spans)

	terms := make([]models.Term, 0, len(spans))
	for _, s := range segments {
		if s.Flagged {
			terms = append(terms, *s.Term)
		}
	}

	return Result{Segments: segments, Terms: terms, Spans: spans}
}
