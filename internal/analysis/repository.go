package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barrybecker4/applets-sub001/internal/db"
	"github.com/barrybecker4/applets-sub001/internal/models"
)

// Repository persists analysis documents.
type Repository interface {
	// Save inserts or replaces the document with a.AnalysisID.
	Save(ctx context.Context, a *models.Analysis) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, analysisID string) (*models.Analysis, error)
	// MarkAbandoned fails every unfinished analysis whose last heartbeat
	// is older than staleBefore and returns how many it changed.
	MarkAbandoned(ctx context.Context, staleBefore time.Time) (int64, error)
}

// MongoRepository stores analyses in the analyses collection.
type MongoRepository struct {
	db *db.MongoDB
}

func NewMongoRepository(database *db.MongoDB) *MongoRepository {
	return &MongoRepository{db: database}
}

func (r *MongoRepository) Save(ctx context.Context, a *models.Analysis) error {
	_, err := r.db.Analyses().ReplaceOne(ctx,
		bson.M{"analysisId": a.AnalysisID},
		a,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", a.AnalysisID, err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, analysisID string) (*models.Analysis, error) {
	var a models.Analysis
	err := r.db.Analyses().FindOne(ctx, bson.M{"analysisId": analysisID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis %s: %w", analysisID, err)
	}
	return &a, nil
}

// MarkAbandoned only runs on the instance holding the cleanup lock; the
// others return 0 without touching anything.
func (r *MongoRepository) MarkAbandoned(ctx context.Context, staleBefore time.Time) (int64, error) {
	if !r.tryAcquireLock(ctx) {
		return 0, nil
	}
	defer r.releaseLock(ctx)

	now := time.Now()
	result, err := r.db.Analyses().UpdateMany(ctx,
		bson.M{
			"status":    bson.M{"$in": []models.AnalysisStatus{models.AnalysisRunning, models.AnalysisPaused}},
			"updatedAt": bson.M{"$lt": staleBefore},
		},
		bson.M{
			"$set": bson.M{
				"status":      models.AnalysisFailed,
				"error":       "abandoned: the server running it stopped reporting",
				"completedAt": now,
				"updatedAt":   now,
			},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned analyses: %w", err)
	}
	return result.ModifiedCount, nil
}

const cleanupLockID = "abandoned_analysis_cleanup"

func (r *MongoRepository) tryAcquireLock(ctx context.Context) bool {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	now := time.Now()
	filter := bson.M{
		"_id": cleanupLockID,
		"$or": []bson.M{
			{"lockedUntil": bson.M{"$exists": false}},
			{"lockedUntil": bson.M{"$lt": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"lockedUntil": now.Add(5 * time.Minute),
			"lockedBy":    hostname,
			"lockedAt":    now,
		},
	}

	// a duplicate key or no match means another server holds the lock
	opts := options.FindOneAndUpdate().SetUpsert(true)
	return r.db.CleanupLocks().FindOneAndUpdate(ctx, filter, update, opts).Err() == nil
}

func (r *MongoRepository) releaseLock(ctx context.Context) {
	_, _ = r.db.CleanupLocks().UpdateOne(ctx,
		bson.M{"_id": cleanupLockID},
		bson.M{"$set": bson.M{"lockedUntil": time.Now()}},
	)
}
