// Package importer reads lemma/translation data files into terms.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"termcheck/pkg/models"
)

// Record is one entry of the source data file.
type Record struct {
	Lemma        string   `json:"lemma"`
	LemmaLang    string   `json:"lemma_lang"`
	Definition   string   `json:"definition"`
	Translations []string `json:"translations"`
}

type Result struct {
	Terms      []models.Term
	Skipped    int
	Duplicates int
}

// TermWriter is the part of a term store the importer writes to.
type TermWriter interface {
	AddTerms(ctx context.Context, terms []models.Term) error
}

// languageOf maps the source language code to a dictionary language.
// Only German is distinguished, every other code is treated as English.
func languageOf(code string) string {
	if strings.EqualFold(strings.TrimSpace(code), "de") {
		return "german"
	}
	return "english"
}

// Parse decodes a JSON array of records. Records with an empty lemma are
// skipped; repeated (language, lemma) pairs keep the first occurrence.
func Parse(r io.Reader) (Result, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return Result{}, fmt.Errorf("decode records: %w", err)
	}

	res := Result{Terms: make([]models.Term, 0, len(records))}
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		lemma := strings.TrimSpace(rec.Lemma)
		if lemma == "" {
			res.Skipped++
			continue
		}

		language := languageOf(rec.LemmaLang)
		key := language + ":" + lemma
		if seen[key] {
			res.Duplicates++
			continue
		}
		seen[key] = true

		var translations []string
		for _, tr := range rec.Translations {
			if tr = strings.TrimSpace(tr); tr != "" {
				translations = append(translations, tr)
			}
		}

		res.Terms = append(res.Terms, models.Term{
			ID:           models.NewTermID(language, lemma),
			Surface:      lemma,
			Language:     language,
			Description:  strings.TrimSpace(rec.Definition),
			Translations: translations,
		})
	}

	return res, nil
}

func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return Parse(f)
}

// Import parses the file at path and writes the terms to dst.
func Import(ctx context.Context, path string, dst TermWriter) (Result, error) {
	res, err := ParseFile(path)
	if err != nil {
		return Result{}, err
	}

	if err := dst.AddTerms(ctx, res.Terms); err != nil {
		return Result{}, fmt.Errorf("store terms from %s: %w", path, err)
	}
	log.Infof("[importer] imported %d terms from %s (skipped: %d, duplicates: %d)",
		len(res.Terms), path, res.Skipped, res.Duplicates)

	return res, nil
}
