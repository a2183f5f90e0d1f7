package memdb

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

var testTerms = []models.Term{
	{Surface: "race", Language: "english", Description: "d1", Translations: []string{"Rasse"}},
	{Surface: "Rasse", Language: "german", Translations: []string{"race", "Rasse"}},
	{Surface: "ethnicity", Language: "english", Translations: []string{"Rasse", "Ethnie"}},
	{Surface: "color blind", Language: "english"},
}

func TestStore_AddTerms(t *testing.T) {
	db := New()

	if err := db.AddTerms(context.Background(), testTerms); err != nil {
		t.Fatalf("unexpected error while adding terms: %v", err)
	}
	if len(db.terms) != len(testTerms) {
		t.Errorf("want terms in DB %d, got terms in DB %d", len(testTerms), len(db.terms))
	}

	// Same surface and language is an update, not a new term.
	upd := models.Term{Surface: "race", Language: "english", Description: "d2"}
	if err := db.AddTerms(context.Background(), []models.Term{upd}); err != nil {
		t.Fatalf("unexpected error while updating term: %v", err)
	}
	if len(db.terms) != len(testTerms) {
		t.Errorf("want terms in DB %d after update, got %d", len(testTerms), len(db.terms))
	}
	got, err := db.Term(context.Background(), models.NewTermID("english", "race"))
	if err != nil {
		t.Fatalf("unexpected error while getting term: %v", err)
	}
	if got.Description != "d2" {
		t.Errorf("want description %q, got %q", "d2", got.Description)
	}

	err = db.AddTerms(context.Background(), []models.Term{{Language: "english"}})
	if !errors.Is(err, storage.ErrInvalidTerm) {
		t.Errorf("want ErrInvalidTerm, got %v", err)
	}
}

func TestStore_Terms(t *testing.T) {
	db := New()
	if err := db.AddTerms(context.Background(), testTerms); err != nil {
		t.Fatal(err)
	}

	got, err := db.Terms(context.Background(), "english")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"color blind", "ethnicity", "race"}
	if len(got) != len(want) {
		t.Fatalf("want %d terms, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Surface != w {
			t.Errorf("want term[%d] %q, got %q", i, w, got[i].Surface)
		}
	}

	got, err = db.Terms(context.Background(), "french")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no french terms, got %d", len(got))
	}
}

func TestStore_Term(t *testing.T) {
	db := New()
	if err := db.AddTerms(context.Background(), testTerms); err != nil {
		t.Fatal(err)
	}

	_, err := db.Term(context.Background(), uuid.Must(uuid.NewV4()))
	if !errors.Is(err, storage.ErrTermNotFound) {
		t.Errorf("want ErrTermNotFound, got %v", err)
	}
}

func TestStore_Alternatives(t *testing.T) {
	db := New()
	if err := db.AddTerms(context.Background(), testTerms); err != nil {
		t.Fatal(err)
	}

	got, err := db.Alternatives(context.Background(), models.NewTermID("english", "race"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Rasse", "ethnicity"}
	if len(got) != len(want) {
		t.Fatalf("want alternatives %q, got %+v", want, got)
	}
	for i, w := range want {
		if got[i].Surface != w {
			t.Errorf("want alternative[%d] %q, got %q", i, w, got[i].Surface)
		}
	}

	got, err = db.Alternatives(context.Background(), models.NewTermID("english", "color blind"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil alternatives, got %+v", got)
	}

	_, err = db.Alternatives(context.Background(), uuid.Must(uuid.NewV4()))
	if !errors.Is(err, storage.ErrTermNotFound) {
		t.Errorf("want ErrTermNotFound, got %v", err)
	}
}

func TestStore_AddTerms_duplicateSurface(t *testing.T) {
	db := New()
	ctx := context.Background()

	batch := []models.Term{
		{Surface: "color", Language: "english"},
		{ID: uuid.Must(uuid.NewV4()), Surface: "color", Language: "english"},
	}
	if err := db.AddTerms(ctx, batch); !errors.Is(err, storage.ErrInvalidTerm) {
		t.Errorf("want ErrInvalidTerm for duplicate in one batch, got %v", err)
	}
	if len(db.terms) != 0 {
		t.Errorf("want no terms stored from a rejected batch, got %d", len(db.terms))
	}

	if err := db.AddTerms(ctx, testTerms); err != nil {
		t.Fatal(err)
	}
	dup := []models.Term{
		{Surface: "slur", Language: "english"},
		{ID: uuid.Must(uuid.NewV4()), Surface: "race", Language: "english"},
	}
	if err := db.AddTerms(ctx, dup); !errors.Is(err, storage.ErrInvalidTerm) {
		t.Errorf("want ErrInvalidTerm for surface taken by a stored term, got %v", err)
	}

	got, err := db.Terms(ctx, "english")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("want 3 english terms after rejected batch, got %d", len(got))
	}

	other := []models.Term{{ID: uuid.Must(uuid.NewV4()), Surface: "race", Language: "german"}}
	if err := db.AddTerms(ctx, other); err != nil {
		t.Errorf("want same surface accepted in another language, got %v", err)
	}
}
