package report

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kolamlabs/kolamscan/pkg/errors"
)

// document is the persisted shape. The composite is stored as its JSON
// encoding so the boundary formatting (percent strings, pixel lengths)
// survives storage unchanged and the collection needs no schema updates
// when report fields evolve.
type document struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	Width     int       `bson:"width"`
	Height    int       `bson:"height"`
	Quality   float64   `bson:"quality_score"`
	Payload   []byte    `bson:"payload"`
}

// MongoStore persists composite reports in a MongoDB collection keyed by
// run ID.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore connects to the given MongoDB URI and returns a store
// over database/collection.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}
	return &MongoStore{col: client.Database(database).Collection(collection)}, nil
}

// NewMongoStoreWithCollection wraps an existing collection, mainly for
// tests with a preconfigured client.
func NewMongoStoreWithCollection(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// Save upserts a report under its run ID.
func (s *MongoStore) Save(ctx context.Context, rep *CompositeReport) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode report")
	}
	doc := document{
		ID:        rep.RunID,
		CreatedAt: time.Now().UTC(),
		Width:     rep.Dimensions.Width,
		Height:    rep.Dimensions.Height,
		Quality:   float64(rep.Summary.OverallQuality),
		Payload:   payload,
	}
	_, err = s.col.ReplaceOne(ctx,
		bson.M{"_id": rep.RunID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "store report")
	}
	return nil
}

// Get retrieves a report by run ID.
func (s *MongoStore) Get(ctx context.Context, runID string) (*CompositeReport, error) {
	var doc document
	err := s.col.FindOne(ctx, bson.M{"_id": runID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeReportNotFound, "report %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load report")
	}
	var rep CompositeReport
	if err := json.Unmarshal(doc.Payload, &rep); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode report")
	}
	return &rep, nil
}

// Recent lists the newest reports, most recent first.
func (s *MongoStore) Recent(ctx context.Context, limit int) ([]*CompositeReport, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.col.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.M{"created_at": -1}).
			SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list reports")
	}
	defer cur.Close(ctx)

	var out []*CompositeReport
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "decode report document")
		}
		var rep CompositeReport
		if err := json.Unmarshal(doc.Payload, &rep); err != nil {
			continue
		}
		out = append(out, &rep)
	}
	return out, cur.Err()
}

// Delete removes a stored report. Deleting a missing report is not an
// error.
func (s *MongoStore) Delete(ctx context.Context, runID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": runID})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete report")
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.col.Database().Client().Disconnect(ctx)
}
