package mongo

import (
	"Postpilot/internal/pkg/cron"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type jobRepoImpl struct {
	col *mongo.Collection
}

// NewJobRepo returns a cron.JobStore persisted in collection
func NewJobRepo(db *mongo.Database, collection string) cron.JobStore {
	return &jobRepoImpl{
		col: db.Collection(collection),
	}
}

// EnsureIndexes creates the indexes used by the claim and lookup queries
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "next_run_at", Value: 1}, {Key: "locked_at", Value: 1}}},
	})
	return err
}

func (s *jobRepoImpl) Insert(ctx context.Context, job *cron.JobRecord) error {
	_, err := s.col.InsertOne(ctx, job)
	return err
}

func (s *jobRepoImpl) UpsertRecurring(ctx context.Context, job *cron.JobRecord) (*cron.JobRecord, error) {
	filter := bson.M{"name": job.Name, "type": cron.JobTypeRecurring}
	update := bson.M{
		"$set": bson.M{
			"interval":    job.Interval,
			"next_run_at": job.NextRunAt,
		},
		"$setOnInsert": bson.M{
			"_id":              job.ID,
			"locked_at":        nil,
			"last_run_at":      nil,
			"last_finished_at": nil,
			"failed_at":        nil,
			"fail_reason":      "",
			"fail_count":       0,
			"created_at":       job.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved cron.JobRecord
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *jobRepoImpl) DeleteByName(ctx context.Context, name string) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"name": name})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *jobRepoImpl) FindByName(ctx context.Context, name string) ([]*cron.JobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "next_run_at", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"name": name}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	list := make([]*cron.JobRecord, 0)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ClaimDue locks one due record atomically, so concurrent pollers never run the same record
func (s *jobRepoImpl) ClaimDue(ctx context.Context, now, staleBefore time.Time) (*cron.JobRecord, error) {
	filter := bson.M{
		"next_run_at": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"locked_at": nil},
			bson.M{"locked_at": bson.M{"$lte": staleBefore}},
		},
	}
	update := bson.M{"$set": bson.M{"locked_at": now, "last_run_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_run_at", Value: 1}}).
		SetReturnDocument(options.After)

	var job cron.JobRecord
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (s *jobRepoImpl) Complete(ctx context.Context, job *cron.JobRecord) error {
	update := bson.M{"$set": bson.M{
		"next_run_at":      job.NextRunAt,
		"locked_at":        nil,
		"last_finished_at": job.LastFinishedAt,
		"failed_at":        job.FailedAt,
		"fail_reason":      job.FailReason,
		"fail_count":       job.FailCount,
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": job.ID}, update)
	return err
}

func (s *jobRepoImpl) Remove(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
