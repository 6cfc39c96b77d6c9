// Clears analyses and relayed events from the dev database:
//
//	go run scripts/clear_db.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/barrybecker4/applets-sub001/internal/config"
	"github.com/barrybecker4/applets-sub001/internal/db"
)

func main() {
	// Load config
	cfg, err := config.Load("dev")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.MongoDB.URI == "" {
		log.Fatal().Msg("mongodb.uri is not set; export MONGODB_URI")
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	ctx := context.Background()

	analysesResult, err := mongodb.Analyses().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to delete analyses")
	}
	fmt.Printf("Deleted %d analyses\n", analysesResult.DeletedCount)

	eventsResult, err := mongodb.AnalysisEvents().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to delete analysis events")
	}
	fmt.Printf("Deleted %d analysis events\n", eventsResult.DeletedCount)

	fmt.Println("Database cleared successfully")
}
