package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared with the existing deployment.
const (
	HistoryCollection = "chat_history"
	SummaryCollection = "chat_summary"
)

// MongoStore persists history in MongoDB.
type MongoStore struct {
	client    *mongo.Client
	history   *mongo.Collection
	summaries *mongo.Collection
	owned     bool

	mu     sync.RWMutex
	closed bool
}

type turnDoc struct {
	ID        int64     `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

type summaryDoc struct {
	UserID    string    `bson:"user_id"`
	Summary   string    `bson:"summary"`
	Timestamp time.Time `bson:"timestamp"`
}

// DialMongo connects to uri and returns a store over database. Close
// disconnects the client.
func DialMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := NewMongoStore(client, database)
	s.owned = true
	return s, nil
}

// NewMongoStore wraps an existing client. Close leaves the client open.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:    client,
		history:   db.Collection(HistoryCollection),
		summaries: db.Collection(SummaryCollection),
	}
}

func (s *MongoStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Append implements Store.
func (s *MongoStore) Append(ctx context.Context, turn Turn) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.history.InsertOne(ctx, turnDoc{
		ID:        turn.ID,
		UserID:    turn.UserID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		Timestamp: turn.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Recent implements Store.
func (s *MongoStore) Recent(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, userID, opts)
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context, userID string) ([]Turn, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, userID, opts)
}

func (s *MongoStore) find(ctx context.Context, userID string, opts *options.FindOptions) ([]Turn, error) {
	cur, err := s.history.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find turns: %w", err)
	}
	var docs []turnDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}

	turns := make([]Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, Turn{
			ID:        d.ID,
			UserID:    d.UserID,
			Role:      Role(d.Role),
			Content:   d.Content,
			Timestamp: d.Timestamp,
		})
	}
	return turns, nil
}

// DeleteThrough implements Store.
func (s *MongoStore) DeleteThrough(ctx context.Context, userID string, maxID int64) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	res, err := s.history.DeleteMany(ctx, bson.M{
		"user_id": userID,
		"_id":     bson.M{"$lte": maxID},
	})
	if err != nil {
		return 0, fmt.Errorf("delete turns: %w", err)
	}
	return int(res.DeletedCount), nil
}

// Summary implements Store.
func (s *MongoStore) Summary(ctx context.Context, userID string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	var doc summaryDoc
	err := s.summaries.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load summary: %w", err)
	}
	return doc.Summary, nil
}

// SaveSummary implements Store.
func (s *MongoStore) SaveSummary(ctx context.Context, userID, summary string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.summaries.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": summaryDoc{UserID: userID, Summary: summary, Timestamp: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.client.Disconnect(context.Background())
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
