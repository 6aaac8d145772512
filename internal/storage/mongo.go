package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"blockgrid/internal/domain"
)

const (
	mongoCollection = "documents"
	mongoTimeout    = 10 * time.Second
)

// MongoDocumentStore implements domain.DocumentStore on a MongoDB
// collection, one document per page keyed by page id.
type MongoDocumentStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	PageID    string    `bson:"_id"`
	Tree      string    `bson:"tree"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// OpenMongo connects to uri and uses the documents collection of database.
func OpenMongo(uri, database string) (*MongoDocumentStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoDocumentStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

// Close disconnects the client.
func (s *MongoDocumentStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoDocumentStore) LoadDocument(pageID string) (*domain.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	var rec mongoDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": pageID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load document %s: %w", pageID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", pageID, err)
	}
	doc := &domain.Document{}
	if err := json.Unmarshal([]byte(rec.Tree), doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", pageID, err)
	}
	doc.PageID = pageID
	doc.UpdatedAt = rec.UpdatedAt
	return doc, nil
}

func (s *MongoDocumentStore) SaveDocument(doc *domain.Document) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	doc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.PageID, err)
	}
	rec := mongoDocument{PageID: doc.PageID, Tree: string(data), UpdatedAt: doc.UpdatedAt}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": doc.PageID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.PageID, err)
	}
	return nil
}

func (s *MongoDocumentStore) DeleteDocument(pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": pageID})
	return err
}

func (s *MongoDocumentStore) ListPages() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var recs []struct {
		PageID string `bson:"_id"`
	}
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.PageID
	}
	return ids, nil
}

var _ domain.DocumentStore = (*MongoDocumentStore)(nil)
