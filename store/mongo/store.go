// Package mongo implements the Payflow store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/payflow"
	"github.com/xraph/payflow/directory"
	"github.com/xraph/payflow/receipt"
	"github.com/xraph/payflow/schedule"
	payflowstore "github.com/xraph/payflow/store"
	"github.com/xraph/payflow/stream"
)

// Collection name constants.
const (
	colDirectory = "payflow_directory"
	colSchedules = "payflow_schedules"
	colStreams   = "payflow_streams"
	colReceipts  = "payflow_receipts"
)

// compile-time interface check
var _ payflowstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and returns a store bound to dbName.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("payflow/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("payflow/mongo: ping: %w", err)
	}
	return NewWithClient(client, dbName), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// Migrate creates indexes for all payflow collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colSchedules: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "next_payout", Value: 1}}},
		},
		colStreams: {
			{Keys: bson.D{{Key: "active", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "username", Value: 1}, {Key: "executed_at", Value: 1}}},
			{Keys: bson.D{{Key: "username", Value: 1}, {Key: "kind", Value: 1}}},
		},
	}

	for col, models := range indexes {
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("payflow/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Directory ====================

func (s *Store) CreateEntry(ctx context.Context, e *directory.Entry) error {
	_, err := s.db.Collection(colDirectory).InsertOne(ctx, toEntryModel(e))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return payflow.ErrAlreadyExists
		}
		return fmt.Errorf("payflow/mongo: create entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, username string) (*directory.Entry, error) {
	var m entryModel
	err := s.db.Collection(colDirectory).
		FindOne(ctx, bson.M{"_id": username}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, payflow.ErrUserNotFound
		}
		return nil, fmt.Errorf("payflow/mongo: get entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) UpdateEntry(ctx context.Context, e *directory.Entry) error {
	res, err := s.db.Collection(colDirectory).
		ReplaceOne(ctx, bson.M{"_id": e.Username}, toEntryModel(e))
	if err != nil {
		return fmt.Errorf("payflow/mongo: update entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return payflow.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context) ([]*directory.Entry, error) {
	cursor, err := s.db.Collection(colDirectory).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("payflow/mongo: list entries: %w", err)
	}

	var models []entryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payflow/mongo: list entries decode: %w", err)
	}

	result := make([]*directory.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Schedules ====================

func (s *Store) PutSchedule(ctx context.Context, sch *schedule.Schedule) error {
	_, err := s.db.Collection(colSchedules).
		ReplaceOne(ctx, bson.M{"_id": sch.Username}, toScheduleModel(sch),
			options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("payflow/mongo: put schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, username string) (*schedule.Schedule, error) {
	var m scheduleModel
	err := s.db.Collection(colSchedules).
		FindOne(ctx, bson.M{"_id": username}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, payflow.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("payflow/mongo: get schedule: %w", err)
	}
	return fromScheduleModel(&m)
}

func (s *Store) UpdateSchedule(ctx context.Context, sch *schedule.Schedule) error {
	res, err := s.db.Collection(colSchedules).
		ReplaceOne(ctx, bson.M{"_id": sch.Username}, toScheduleModel(sch))
	if err != nil {
		return fmt.Errorf("payflow/mongo: update schedule: %w", err)
	}
	if res.MatchedCount == 0 {
		return payflow.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) ListDueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	cursor, err := s.db.Collection(colSchedules).
		Find(ctx, bson.M{
			"active":      true,
			"next_payout": bson.M{"$lte": now},
		}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("payflow/mongo: list due schedules: %w", err)
	}

	var models []scheduleModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payflow/mongo: list due schedules decode: %w", err)
	}

	result := make([]*schedule.Schedule, len(models))
	for i := range models {
		sch, err := fromScheduleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sch
	}
	return result, nil
}

// ==================== Streams ====================

func (s *Store) PutStream(ctx context.Context, st *stream.Stream) error {
	_, err := s.db.Collection(colStreams).
		ReplaceOne(ctx, bson.M{"_id": st.Username}, toStreamModel(st),
			options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("payflow/mongo: put stream: %w", err)
	}
	return nil
}

func (s *Store) GetStream(ctx context.Context, username string) (*stream.Stream, error) {
	var m streamModel
	err := s.db.Collection(colStreams).
		FindOne(ctx, bson.M{"_id": username}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, payflow.ErrStreamNotFound
		}
		return nil, fmt.Errorf("payflow/mongo: get stream: %w", err)
	}
	return fromStreamModel(&m)
}

func (s *Store) UpdateStream(ctx context.Context, st *stream.Stream) error {
	res, err := s.db.Collection(colStreams).
		ReplaceOne(ctx, bson.M{"_id": st.Username}, toStreamModel(st))
	if err != nil {
		return fmt.Errorf("payflow/mongo: update stream: %w", err)
	}
	if res.MatchedCount == 0 {
		return payflow.ErrStreamNotFound
	}
	return nil
}

func (s *Store) ListActiveStreams(ctx context.Context) ([]*stream.Stream, error) {
	cursor, err := s.db.Collection(colStreams).
		Find(ctx, bson.M{"active": true}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("payflow/mongo: list active streams: %w", err)
	}

	var models []streamModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payflow/mongo: list active streams decode: %w", err)
	}

	result := make([]*stream.Stream, len(models))
	for i := range models {
		st, err := fromStreamModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = st
	}
	return result, nil
}

// ==================== Receipts ====================

func (s *Store) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	_, err := s.db.Collection(colReceipts).InsertOne(ctx, toReceiptModel(r))
	if err != nil {
		return fmt.Errorf("payflow/mongo: create receipt: %w", err)
	}
	return nil
}

func (s *Store) ListReceipts(ctx context.Context, username string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	filter := bson.M{"username": username}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "executed_at", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colReceipts).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("payflow/mongo: list receipts: %w", err)
	}

	var models []receiptModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("payflow/mongo: list receipts decode: %w", err)
	}

	result := make([]*receipt.Receipt, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
