package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const termsCollection = "terms"

type Storage struct {
	client *mongo.Client
	dbName string
}

func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := mongo.Connect(ctx, conf.Options())
	if err != nil {
		return nil, err
	}

	s := Storage{client: client, dbName: conf.DBName}
	if err := s.createCollection(ctx, termsCollection); err != nil {
		return nil, err
	}

	_, err = s.terms().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "language", Value: 1}, {Key: "term", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "translations", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Storage) Close(ctx context.Context) {
	s.client.Disconnect(ctx)
}

func (s *Storage) terms() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(termsCollection)
}

// AddTerms upserts the terms by ID in one bulk write.
func (s *Storage) AddTerms(ctx context.Context, terms []models.Term) error {
	valid, err := storage.ValidateTerms(terms...)
	if err != nil {
		return err
	}
	if len(valid) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(valid))
	for _, t := range valid {
		if t.Translations == nil {
			t.Translations = []string{}
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": t.ID}).
			SetReplacement(t).
			SetUpsert(true))
	}

	_, err = s.terms().BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", storage.ErrInvalidTerm, err)
	}
	return err
}

// Terms returns all terms of a language sorted by surface form.
func (s *Storage) Terms(ctx context.Context, language string) ([]models.Term, error) {
	return s.find(ctx, bson.M{"language": language})
}

func (s *Storage) Term(ctx context.Context, id uuid.UUID) (models.Term, error) {
	var t models.Term
	err := s.terms().FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Term{}, storage.ErrTermNotFound
	}
	if err != nil {
		return models.Term{}, err
	}
	return t, nil
}

// Alternatives returns the terms sharing at least one translation with the given term.
func (s *Storage) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	src, err := s.Term(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(src.Translations) == 0 {
		return []models.Term{}, nil
	}

	return s.find(ctx, bson.M{
		"_id":          bson.M{"$ne": src.ID},
		"translations": bson.M{"$in": src.Translations},
	})
}

func (s *Storage) find(ctx context.Context, filter bson.M) ([]models.Term, error) {
	opts := options.Find().SetSort(bson.D{{Key: "term", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.terms().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	terms := []models.Term{}
	if err := cur.All(ctx, &terms); err != nil {
		return nil, err
	}

	return terms, nil
}

// createCollection creates a collection with the given name in the database if it doesn't already exist.
func (s *Storage) createCollection(ctx context.Context, collName string) error {
	collExists, err := collectionExists(ctx, s.client.Database(s.dbName), collName)
	if err != nil {
		return err
	}

	if !collExists {
		if err := s.client.Database(s.dbName).CreateCollection(ctx, collName); err != nil {
			return err
		}
	}

	return nil
}

// collectionExists checks if a collection with the given name exists in the database.
func collectionExists(ctx context.Context, db *mongo.Database, collName string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return false, fmt.Errorf("failed to list collection names: %w", err)
	}

	for _, name := range names {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}
