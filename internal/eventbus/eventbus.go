// Package eventbus relays analysis events between server instances.
//
// Websocket subscribers connect to whichever instance the load balancer
// picks, but an analysis runs on exactly one. Each instance publishes its
// analysis events to a MongoDB collection and watches that collection
// with a change stream, handing events from other machines to its local
// websocket hub.
package eventbus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnalysisEvent is the document stored in the analysis_events collection.
type AnalysisEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	OriginMachineID string             `bson:"originMachineId"`
	AnalysisID      string             `bson:"analysisId"`
	Message         []byte             `bson:"message"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// DeliverFunc hands a message to the local websocket clients of one analysis.
type DeliverFunc func(analysisID string, message []byte)

// EventBus publishes analysis events to MongoDB and watches for
// events from other machines via Change Streams.
type EventBus struct {
	machineID    string
	collection   *mongo.Collection
	deliverLocal DeliverFunc
	logger       zerolog.Logger
	cancelFunc   context.CancelFunc
	wg           sync.WaitGroup
	running      bool
	mu           sync.Mutex
}

func generateMachineID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// New creates an EventBus. If collection is nil, the EventBus runs in
// local-only mode (Publish is a no-op, no watcher runs).
func New(collection *mongo.Collection, deliverLocal DeliverFunc) *EventBus {
	return &EventBus{
		machineID:    generateMachineID(),
		collection:   collection,
		deliverLocal: deliverLocal,
		logger:       log.With().Str("component", "eventbus").Logger(),
	}
}

// MachineID returns this instance's unique identifier.
func (eb *EventBus) MachineID() string {
	return eb.machineID
}

// Start begins the Change Stream watcher in a background goroutine.
func (eb *EventBus) Start() {
	if eb.collection == nil {
		eb.logger.Info().Msg("no collection configured, running in local-only mode")
		return
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb.cancelFunc = cancel
	eb.running = true
	eb.wg.Add(1)

	go eb.watchLoop(ctx)
	eb.logger.Info().Str("machineId", eb.machineID).Msg("started")
}

// Stop cancels the Change Stream watcher and waits for it to exit.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if !eb.running {
		return
	}
	eb.running = false
	if eb.cancelFunc != nil {
		eb.cancelFunc()
	}
	eb.wg.Wait()
	eb.logger.Info().Msg("stopped")
}

// Publish inserts an analysis event for the other machines.
// Errors are logged, never returned (fire-and-forget).
func (eb *EventBus) Publish(analysisID string, message []byte) {
	if eb.collection == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc := AnalysisEvent{
		OriginMachineID: eb.machineID,
		AnalysisID:      analysisID,
		Message:         message,
		CreatedAt:       time.Now(),
	}
	if _, err := eb.collection.InsertOne(ctx, doc); err != nil {
		eb.logger.Warn().Err(err).Str("analysis", analysisID).Msg("failed to publish event")
	}
}

// watchLoop runs the Change Stream in a reconnecting loop.
func (eb *EventBus) watchLoop(ctx context.Context) {
	defer eb.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		err := eb.watch(ctx)
		if ctx.Err() != nil {
			return // normal shutdown
		}
		eb.logger.Warn().Err(err).Msg("change stream error, reconnecting in 2s")
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (eb *EventBus) watch(ctx context.Context) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: "insert"},
			{Key: "fullDocument.originMachineId", Value: bson.D{{Key: "$ne", Value: eb.machineID}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := eb.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(ctx)

	for cs.Next(ctx) {
		var changeDoc struct {
			FullDocument AnalysisEvent `bson:"fullDocument"`
		}
		if err := cs.Decode(&changeDoc); err != nil {
			eb.logger.Warn().Err(err).Msg("failed to decode change event")
			continue
		}
		eb.handle(changeDoc.FullDocument)
	}

	return cs.Err()
}

// handle delivers an event that arrived from the change stream.
func (eb *EventBus) handle(event AnalysisEvent) {
	// Events from this machine were already delivered locally
	if event.OriginMachineID == eb.machineID || eb.deliverLocal == nil {
		return
	}
	if event.AnalysisID == "" {
		eb.logger.Warn().Str("origin", event.OriginMachineID).Msg("event without analysis id")
		return
	}
	eb.deliverLocal(event.AnalysisID, event.Message)
}
