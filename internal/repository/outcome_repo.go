package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"okrdrift/internal/model"
)

// OutcomeRepo archives applied submission outcomes for diagnostics
type OutcomeRepo interface {
	Save(ctx context.Context, record *model.OutcomeRecord) error
	GetByID(ctx context.Context, id string) (*model.OutcomeRecord, error)
	ListByStudent(ctx context.Context, studentID string, limit int64) ([]*model.OutcomeRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.OutcomeRecord, error)
}

type outcomeRepo struct {
	collection *mongo.Collection
}

// NewOutcomeRepo creates a new outcome repository
func NewOutcomeRepo(db *mongo.Database) OutcomeRepo {
	return &outcomeRepo{
		collection: db.Collection("analysis_outcomes"),
	}
}

// EnsureIndexes creates the lookup indexes used by the list queries
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("analysis_outcomes").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "token", Value: 1}}},
	})
	return err
}

func (r *outcomeRepo) Save(ctx context.Context, record *model.OutcomeRecord) error {
	if record.ID == "" {
		record.ID = primitive.NewObjectID().Hex()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, opts)
	return err
}

func (r *outcomeRepo) GetByID(ctx context.Context, id string) (*model.OutcomeRecord, error) {
	var record model.OutcomeRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByStudent returns the newest records first. A limit of 0 means no limit.
func (r *outcomeRepo) ListByStudent(ctx context.Context, studentID string, limit int64) ([]*model.OutcomeRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, bson.M{"studentId": studentID}, opts)
}

func (r *outcomeRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.OutcomeRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "token", Value: 1}})
	return r.find(ctx, bson.M{"sessionId": sessionID}, opts)
}

func (r *outcomeRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.OutcomeRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []*model.OutcomeRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
