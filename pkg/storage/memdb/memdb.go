package memdb

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

type Store struct {
	mu    sync.RWMutex
	terms map[uuid.UUID]models.Term
}

func New() *Store {
	db := Store{
		terms: make(map[uuid.UUID]models.Term),
	}

	return &db
}

// AddTerms inserts the terms or replaces those with the same ID. Nothing is
// stored when a surface is already taken in its language by another term.
func (db *Store) AddTerms(ctx context.Context, terms []models.Term) error {
	valid, err := storage.ValidateTerms(terms...)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	taken := make(map[string]uuid.UUID, len(db.terms))
	for id, t := range db.terms {
		taken[storage.SurfaceKey(t)] = id
	}
	for _, t := range valid {
		if id, ok := taken[storage.SurfaceKey(t)]; ok && id != t.ID {
			return storage.DuplicateSurface(t)
		}
	}

	for _, t := range valid {
		t.Translations = append([]string(nil), t.Translations...)
		db.terms[t.ID] = t
	}

	return nil
}

func (db *Store) Terms(ctx context.Context, language string) ([]models.Term, error) {
	db.mu.RLock()
	terms := make([]models.Term, 0, len(db.terms))
	for _, t := range db.terms {
		if t.Language == language {
			terms = append(terms, t)
		}
	}
	db.mu.RUnlock()

	storage.SortTerms(terms)
	return terms, nil
}

func (db *Store) Term(ctx context.Context, id uuid.UUID) (models.Term, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.terms[id]
	if !ok {
		return models.Term{}, storage.ErrTermNotFound
	}

	return t, nil
}

func (db *Store) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	db.mu.RLock()
	src, ok := db.terms[id]
	if !ok {
		db.mu.RUnlock()
		return nil, storage.ErrTermNotFound
	}

	alts := []models.Term{}
	for _, t := range db.terms {
		if storage.IsAlternative(src, t) {
			alts = append(alts, t)
		}
	}
	db.mu.RUnlock()

	storage.SortTerms(alts)
	return alts, nil
}
