package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const watchRetryDelay = 3 * time.Second

// ConnectMongo opens a client and verifies connectivity.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client.Database(dbName), nil
}

// MongoStore implements Store on a MongoDB collection. Change notification
// uses a change stream; every event triggers a full re-query so each
// delivery carries the complete document set, never an incremental patch.
type MongoStore struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewMongoStore(db *mongo.Database, collection string, logger *zap.Logger) *MongoStore {
	return &MongoStore{coll: db.Collection(collection), logger: logger}
}

// EnsureIndexes creates the indexes the notes feed relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

type mongoSubscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
}

func (m *mongoSubscription) Snapshots() <-chan Snapshot { return m.snapshots }
func (m *mongoSubscription) Cancel()                    { m.cancel() }

func (s *MongoStore) Subscribe(ctx context.Context) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &mongoSubscription{
		snapshots: make(chan Snapshot, 1),
		cancel:    cancel,
	}
	go s.run(subCtx, sub.snapshots)
	return sub, nil
}

func (s *MongoStore) run(ctx context.Context, out chan<- Snapshot) {
	defer close(out)

	for {
		stream, err := s.coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.send(ctx, out, Snapshot{Err: fmt.Errorf("watch notes: %w", err)}) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(watchRetryDelay):
				continue
			}
		}

		// Snapshot after the stream is live, not before: writes landing
		// between a query and the watch (or during a retry wait) would
		// otherwise never be delivered on a quiet collection.
		if !s.deliver(ctx, out) {
			stream.Close(context.Background())
			return
		}

		for stream.Next(ctx) {
			if !s.deliver(ctx, out) {
				stream.Close(context.Background())
				return
			}
		}
		streamErr := stream.Err()
		stream.Close(context.Background())
		if ctx.Err() != nil {
			return
		}
		if streamErr != nil {
			if !s.send(ctx, out, Snapshot{Err: fmt.Errorf("notes change stream: %w", streamErr)}) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetryDelay):
		}
	}
}

// deliver re-queries the full collection and pushes a snapshot.
func (s *MongoStore) deliver(ctx context.Context, out chan<- Snapshot) bool {
	docs, err := s.queryAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return s.send(ctx, out, Snapshot{Err: err})
	}
	return s.send(ctx, out, Snapshot{Docs: docs})
}

func (s *MongoStore) send(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- snap:
		return true
	}
}

func (s *MongoStore) queryAll(ctx context.Context) ([]Doc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}

	docs := make([]Doc, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, docFromRaw(raw))
	}
	return docs, nil
}

func (s *MongoStore) Insert(ctx context.Context, fields map[string]interface{}) (string, error) {
	now := time.Now().UTC()
	doc := bson.M{}
	for k, v := range fields {
		doc[k] = v
	}
	doc["created_at"] = now
	doc["updated_at"] = now

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (s *MongoStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	update := bson.M{
		// Server clock owns updated_at; callers never supply it.
		"$currentDate": bson.M{"updated_at": true},
	}
	if len(set) > 0 {
		update["$set"] = set
	}

	res, err := s.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("update note %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	// Deleting an already-gone document is not an error.
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

func docFromRaw(raw bson.M) Doc {
	doc := Doc{Fields: make(map[string]interface{}, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = idString(v)
			continue
		}
		doc.Fields[k] = normalizeBSONValue(v)
	}
	return doc
}

func idString(v interface{}) string {
	switch typed := v.(type) {
	case primitive.ObjectID:
		return typed.Hex()
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func normalizeBSONValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case primitive.DateTime:
		return typed.Time().UTC()
	case primitive.ObjectID:
		return typed.Hex()
	default:
		return v
	}
}
