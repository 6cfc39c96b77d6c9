package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"analyses",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "analysisId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
				{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			"analysis_events",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(60)},
			},
		},
		{
			"audit_log",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600)},
				{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		if _, err := coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			log.Warn().Str("component", "db").Err(err).Str("collection", idx.collection).Msg("failed to create indexes")
		}
	}

	log.Info().Str("component", "db").Msg("database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

func (m *MongoDB) Analyses() *mongo.Collection {
	return m.Database.Collection("analyses")
}

// AnalysisEvents is the cross-instance fan-out collection watched by the
// event bus. Documents expire after a minute.
func (m *MongoDB) AnalysisEvents() *mongo.Collection {
	return m.Database.Collection("analysis_events")
}

func (m *MongoDB) CleanupLocks() *mongo.Collection {
	return m.Database.Collection("cleanup_locks")
}

func (m *MongoDB) AuditLog() *mongo.Collection {
	return m.Database.Collection("audit_log")
}
