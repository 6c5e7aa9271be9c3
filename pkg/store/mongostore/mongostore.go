// Package mongostore is a MongoDB-backed component store.
//
// Records live in one collection with the component id as _id, so Put is
// an upsert and Get a primary key lookup.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/store"
)

// DefaultCollection holds component records.
const DefaultCollection = "components"

// Config holds the MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// document is the stored shape. Data is kept as a JSON string so the
// geometry round-trips exactly.
type document struct {
	ID    string `bson:"_id"`
	Kind  string `bson:"kind"`
	Panel string `bson:"panel"`
	RunID string `bson:"run_id"`
	Data  string `bson:"data"`
}

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}
	coll := client.Database(cfg.Database).Collection(name)

	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}}},
		{Keys: bson.D{{Key: "panel", Value: 1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: create indexes: %w", err)
	}
	return &Store{client: client, coll: coll}, nil
}

func toDocument(rec component.Record) document {
	return document{
		ID:    rec.ID,
		Kind:  string(rec.Kind),
		Panel: rec.Panel,
		RunID: rec.RunID,
		Data:  string(rec.Data),
	}
}

func (d document) record() component.Record {
	return component.Record{
		ID:    d.ID,
		Kind:  component.Kind(d.Kind),
		Panel: d.Panel,
		RunID: d.RunID,
		Data:  json.RawMessage(d.Data),
	}
}

func (s *Store) Put(ctx context.Context, rec component.Record) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, toDocument(rec), opts)
	if err != nil {
		return fmt.Errorf("mongostore: put %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (component.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return component.Record{}, store.NotFound(id)
	}
	if err != nil {
		return component.Record{}, fmt.Errorf("mongostore: get %s: %w", id, err)
	}
	return doc.record(), nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]component.Record, error) {
	query := bson.M{}
	if f.Kind != "" {
		query["kind"] = string(f.Kind)
	}
	if f.Panel != "" {
		query["panel"] = f.Panel
	}
	if f.RunID != "" {
		query["run_id"] = f.RunID
	}
	cursor, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongostore: list: %w", err)
	}
	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: list: %w", err)
	}
	out := make([]component.Record, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongostore: delete %s: %w", id, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ store.Store = (*Store)(nil)
