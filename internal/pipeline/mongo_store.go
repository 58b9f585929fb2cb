package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/reconcile"
)

const (
	artifactCollection = "artifacts"
	stagingSuffix      = ".staging"
)

// artifactDocument is the stored form. The artifact is kept as its JSON text
// so the reloaded bytes go through the same check as a file.
type artifactDocument struct {
	ID        string    `bson:"_id"`
	Subject   string    `bson:"subject"`
	Key       string    `bson:"key"`
	Questions int       `bson:"questions"`
	Artifact  string    `bson:"artifact"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore upserts artifacts into a MongoDB collection keyed by subject/key.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongoStore connects to uri and pings the server.
func ConnectMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI cannot be empty")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return NewMongoStore(client, database), nil
}

// NewMongoStore wraps an existing client.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(artifactCollection),
	}
}

// Save writes the artifact under a staging id, reads it back and validates
// the stored bytes, and only then replaces the artifact of fs. A rejected
// write leaves the previous artifact untouched.
func (s *MongoStore) Save(ctx context.Context, fs exam.FileSet, out *exam.CombinedOutput) (string, error) {
	data, err := reconcile.RoundTrip(out)
	if err != nil {
		return "", err
	}

	doc := artifactDocument{
		ID:        fs.Name(),
		Subject:   fs.Subject,
		Key:       fs.Key,
		Questions: out.QuestionCount(),
		Artifact:  string(data),
		UpdatedAt: time.Now().UTC(),
	}
	staged := doc
	staged.ID = doc.ID + stagingSuffix

	if err := s.put(ctx, staged); err != nil {
		return "", err
	}
	if err := s.verify(ctx, staged.ID); err != nil {
		s.discard(ctx, staged.ID)
		return "", err
	}
	if err := s.put(ctx, doc); err != nil {
		s.discard(ctx, staged.ID)
		return "", err
	}
	s.discard(ctx, staged.ID)

	location := fmt.Sprintf("mongodb://%s/%s/%s", s.collection.Database().Name(), s.collection.Name(), doc.ID)
	log.Printf("[Store] upserted %s", location)
	return location, nil
}

func (s *MongoStore) put(ctx context.Context, doc artifactDocument) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", doc.ID, err)
	}
	return nil
}

// verify reloads the document with id and checks its artifact text.
func (s *MongoStore) verify(ctx context.Context, id string) error {
	var stored artifactDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&stored); err != nil {
		return fmt.Errorf("failed to reload artifact %s: %w", id, err)
	}
	return reconcile.CheckReloaded([]byte(stored.Artifact))
}

func (s *MongoStore) discard(ctx context.Context, id string) {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		log.Printf("[Store] cannot remove staged artifact %s: %v", id, err)
	}
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
