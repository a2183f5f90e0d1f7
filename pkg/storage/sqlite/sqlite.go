// Package sqlite is a file-backed term store built on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS terms (
	id          TEXT PRIMARY KEY,
	term        TEXT NOT NULL,
	language    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	UNIQUE (language, term)
);
CREATE TABLE IF NOT EXISTS term_translations (
	term_id     TEXT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
	pos         INTEGER NOT NULL,
	translation TEXT NOT NULL,
	PRIMARY KEY (term_id, pos)
);
CREATE INDEX IF NOT EXISTS term_translations_translation_idx ON term_translations (translation);
`

type Storage struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the schema exists.
func Open(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path", storage.ErrConfParamMissing)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConnectDB, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create terms schema: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// AddTerms inserts the terms or replaces those with the same ID, all in one transaction.
func (s *Storage) AddTerms(ctx context.Context, terms []models.Term) error {
	valid, err := storage.ValidateTerms(terms...)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO terms (id, term, language, description) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET term = excluded.term, language = excluded.language,
		description = excluded.description`

	for _, t := range valid {
		id := t.ID.String()
		if _, err := tx.ExecContext(ctx, upsert, id, t.Surface, t.Language, t.Description); err != nil {
			var serr *msqlite.Error
			if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
				return storage.DuplicateSurface(t)
			}
			return fmt.Errorf("upsert term %q: %w", t.Surface, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_translations WHERE term_id = ?`, id); err != nil {
			return err
		}
		for i, tr := range t.Translations {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO term_translations (term_id, pos, translation) VALUES (?, ?, ?)`, id, i, tr)
			if err != nil {
				return fmt.Errorf("insert translation of %q: %w", t.Surface, err)
			}
		}
	}

	return tx.Commit()
}

func (s *Storage) Terms(ctx context.Context, language string) ([]models.Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, language, description FROM terms WHERE language = ? ORDER BY term, id`, language)
	if err != nil {
		return nil, err
	}

	terms, err := scanTerms(rows)
	if err != nil {
		return nil, err
	}

	return terms, s.loadTranslations(ctx, terms)
}

func (s *Storage) Term(ctx context.Context, id uuid.UUID) (models.Term, error) {
	var (
		t   models.Term
		raw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, term, language, description FROM terms WHERE id = ?`, id.String()).
		Scan(&raw, &t.Surface, &t.Language, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Term{}, storage.ErrTermNotFound
	}
	if err != nil {
		return models.Term{}, err
	}
	if t.ID, err = uuid.FromString(raw); err != nil {
		return models.Term{}, err
	}

	terms := []models.Term{t}
	if err := s.loadTranslations(ctx, terms); err != nil {
		return models.Term{}, err
	}

	return terms[0], nil
}

func (s *Storage) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	if _, err := s.Term(ctx, id); err != nil {
		return nil, err
	}

	const q = `SELECT DISTINCT t.id, t.term, t.language, t.description
		FROM terms t
		JOIN term_translations tt ON tt.term_id = t.id
		WHERE t.id <> ?
		  AND tt.translation IN (SELECT translation FROM term_translations WHERE term_id = ?)
		ORDER BY t.term, t.id`

	rows, err := s.db.QueryContext(ctx, q, id.String(), id.String())
	if err != nil {
		return nil, err
	}

	alts, err := scanTerms(rows)
	if err != nil {
		return nil, err
	}

	return alts, s.loadTranslations(ctx, alts)
}

// loadTranslations fills Translations of every term in place, keeping insertion order.
func (s *Storage) loadTranslations(ctx context.Context, terms []models.Term) error {
	if len(terms) == 0 {
		return nil
	}

	pos := make(map[string]int, len(terms))
	args := make([]any, 0, len(terms))
	for i, t := range terms {
		id := t.ID.String()
		pos[id] = i
		args = append(args, id)
	}

	q := `SELECT term_id, translation FROM term_translations WHERE term_id IN (?` +
		strings.Repeat(", ?", len(args)-1) + `) ORDER BY term_id, pos`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, tr string
		if err := rows.Scan(&id, &tr); err != nil {
			return err
		}
		i := pos[id]
		terms[i].Translations = append(terms[i].Translations, tr)
	}

	return rows.Err()
}

func scanTerms(rows *sql.Rows) ([]models.Term, error) {
	defer rows.Close()

	terms := []models.Term{}
	for rows.Next() {
		var (
			t   models.Term
			raw string
		)
		if err := rows.Scan(&raw, &t.Surface, &t.Language, &t.Description); err != nil {
			return nil, err
		}
		id, err := uuid.FromString(raw)
		if err != nil {
			return nil, fmt.Errorf("bad term id %q: %w", raw, err)
		}
		t.ID = id
		terms = append(terms, t)
	}

	return terms, rows.Err()
}
