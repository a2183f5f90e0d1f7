package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const schema = `
	CREATE TABLE IF NOT EXISTS terms (
		id           UUID PRIMARY KEY,
		term         TEXT NOT NULL,
		language     TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		translations TEXT[] NOT NULL DEFAULT '{}',
		UNIQUE (language, term)
	);
	CREATE INDEX IF NOT EXISTS terms_translations_idx ON terms USING GIN (translations);
`

// uniqueViolation is the SQLSTATE of a UNIQUE constraint failure.
const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	s := Store{
		db: db,
	}

	return &s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// Migrate creates the terms table if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// AddTerms inserts or updates a batch of terms within a single transaction.
// A term with an existing ID has its surface, language, description and translations replaced.
func (s *Store) AddTerms(ctx context.Context, terms []models.Term) error {
	valid, err := storage.ValidateTerms(terms...)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := new(pgx.Batch)
	for _, t := range valid {
		translations := t.Translations
		if translations == nil {
			translations = []string{}
		}
		batch.Queue(`
			INSERT INTO terms (id, term, language, description, translations)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id)
			DO UPDATE SET
				term = EXCLUDED.term,
				language = EXCLUDED.language,
				description = EXCLUDED.description,
				translations = EXCLUDED.translations
		`,
			t.ID,
			t.Surface,
			t.Language,
			t.Description,
			translations,
		)
	}

	res := tx.SendBatch(ctx, batch)
	if err := res.Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrInvalidTerm, pgErr.Detail)
		}
		return err
	}

	return tx.Commit(ctx)
}

// Terms returns all terms of a language ordered by surface form.
func (s *Store) Terms(ctx context.Context, language string) ([]models.Term, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, term, language, description, translations
		FROM terms
		WHERE language = $1
		ORDER BY term COLLATE "C", id
	`, language)
	if err != nil {
		return nil, err
	}

	return scanTerms(rows)
}

// Term retrieves a term by its ID.
func (s *Store) Term(ctx context.Context, id uuid.UUID) (t models.Term, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT id, term, language, description, translations
		FROM terms
		WHERE id = $1
	`,
		id,
	).Scan(
		&t.ID,
		&t.Surface,
		&t.Language,
		&t.Description,
		&t.Translations,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		err = storage.ErrTermNotFound
	}
	return
}

// Alternatives returns the terms sharing at least one translation with the given term.
func (s *Store) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	if _, err := s.Term(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.term, t.language, t.description, t.translations
		FROM terms t, terms src
		WHERE src.id = $1
			AND t.id <> src.id
			AND t.translations && src.translations
		ORDER BY t.term COLLATE "C", t.id
	`, id)
	if err != nil {
		return nil, err
	}

	return scanTerms(rows)
}

func scanTerms(rows pgx.Rows) ([]models.Term, error) {
	defer rows.Close()

	terms := []models.Term{}
	for rows.Next() {
		var t models.Term
		err := rows.Scan(
			&t.ID,
			&t.Surface,
			&t.Language,
			&t.Description,
			&t.Translations)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return terms, nil
}
