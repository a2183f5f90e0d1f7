// Package storage defines the term store consumed by the checker and the API.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/uuid"

	"termcheck/pkg/models"
)

var (
	ErrConnectDB        = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding  = fmt.Errorf("DB not responding")
	ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

	ErrTermNotFound = fmt.Errorf("term not found")
	ErrInvalidTerm  = fmt.Errorf("invalid term")
)

// Storage is a term dictionary. Terms and Alternatives return terms ordered by surface.
type Storage interface {
	Terms(ctx context.Context, language string) ([]models.Term, error)
	Term(ctx context.Context, id uuid.UUID) (models.Term, error)
	Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error)
	AddTerms(ctx context.Context, terms []models.Term) error
}

// IsAlternative reports whether b is an alternative to a: two different
// terms sharing at least one translation.
func IsAlternative(a, b models.Term) bool {
	if a.ID == b.ID {
		return false
	}
	for _, ta := range a.Translations {
		for _, tb := range b.Translations {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

// ValidateTerms fills in missing ids and rejects terms without a surface form
// or language, and batches holding one surface twice for a language under
// different ids.
func ValidateTerms(terms ...models.Term) ([]models.Term, error) {
	out := make([]models.Term, 0, len(terms))
	ids := make(map[string]uuid.UUID, len(terms))
	for _, t := range terms {
		t.Surface = strings.TrimSpace(t.Surface)
		if t.Surface == "" || t.Language == "" {
			return nil, fmt.Errorf("%w: empty surface or language: %+v", ErrInvalidTerm, t)
		}
		if t.ID == uuid.Nil {
			t.ID = models.NewTermID(t.Language, t.Surface)
		}

		key := SurfaceKey(t)
		if id, ok := ids[key]; ok && id != t.ID {
			return nil, DuplicateSurface(t)
		}
		ids[key] = t.ID

		out = append(out, t)
	}
	return out, nil
}

// SurfaceKey identifies the (language, surface) pair a term is unique by.
func SurfaceKey(t models.Term) string {
	return t.Language + "\x00" + t.Surface
}

// DuplicateSurface is the error stores return when t's surface is already
// taken in its language by another term.
func DuplicateSurface(t models.Term) error {
	return fmt.Errorf("%w: %s term %q already exists", ErrInvalidTerm, t.Language, t.Surface)
}

// SortTerms orders terms by surface, then by id.
func SortTerms(terms []models.Term) {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Surface != terms[j].Surface {
			return terms[i].Surface < terms[j].Surface
		}
		return terms[i].ID.String() < terms[j].ID.String()
	})
}
