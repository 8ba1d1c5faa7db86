package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonasqin/automedia-ai/pkg/generation"
)

const (
	generationsCollection = "generations"
	agentsCollection      = "agents"
)

// Mongo implements Store on a MongoDB database.
type Mongo struct {
	generations *mongo.Collection
	agents      *mongo.Collection
}

// NewMongo creates a store over the given database.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		generations: db.Collection(generationsCollection),
		agents:      db.Collection(agentsCollection),
	}
}

// Connect dials MongoDB and returns a store over the named database.
func Connect(ctx context.Context, uri, database string) (*Mongo, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return NewMongo(client.Database(database)), client, nil
}

func (s *Mongo) CreateGeneration(ctx context.Context, gen *generation.Generation) error {
	if gen.Status == "" {
		gen.Status = generation.StatusPending
	}
	now := time.Now().UTC()
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = now
	}
	gen.UpdatedAt = now

	if _, err := s.generations.InsertOne(ctx, gen); err != nil {
		return fmt.Errorf("inserting generation: %w", err)
	}
	return nil
}

func (s *Mongo) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id,
		bson.M{"_id": id, "status": generation.StatusPending},
		bson.M{"$set": bson.M{
			"status":     generation.StatusProcessing,
			"updated_at": time.Now().UTC(),
		}})
}

func (s *Mongo) MarkCompleted(ctx context.Context, id string, c Completion) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []generation.Status{generation.StatusPending, generation.StatusProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":      generation.StatusCompleted,
		"output":      c.Output,
		"metadata":    c.Metadata,
		"tokens":      c.Tokens,
		"cost":        c.Cost,
		"duration_ms": c.DurationMs,
		"retry_count": c.RetryCount,
		"updated_at":  time.Now().UTC(),
	}}
	return s.transition(ctx, id, filter, update)
}

func (s *Mongo) MarkFailed(ctx context.Context, id string, errMsg string, retryCount int) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []generation.Status{generation.StatusPending, generation.StatusProcessing}},
	}
	update := bson.M{"$set": bson.M{
		"status":      generation.StatusFailed,
		"error":       errMsg,
		"retry_count": retryCount,
		"updated_at":  time.Now().UTC(),
	}}
	return s.transition(ctx, id, filter, update)
}

// transition applies a status-guarded update. A guard miss on an existing
// record means the record is already terminal.
func (s *Mongo) transition(ctx context.Context, id string, filter, update bson.M) error {
	res, err := s.generations.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("updating generation %s: %w", id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	err = s.generations.FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up generation %s: %w", id, err)
	}
	return ErrStaleTransition
}

func (s *Mongo) GetGeneration(ctx context.Context, id string) (*generation.Generation, error) {
	var gen generation.Generation
	err := s.generations.FindOne(ctx, bson.M{"_id": id}).Decode(&gen)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching generation %s: %w", id, err)
	}
	return &gen, nil
}

func (s *Mongo) ListGenerationsByUser(ctx context.Context, userID string) ([]generation.Generation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.generations.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing generations for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var gens []generation.Generation
	if err := cursor.All(ctx, &gens); err != nil {
		return nil, fmt.Errorf("decoding generations for user %s: %w", userID, err)
	}
	return gens, nil
}

func (s *Mongo) GetAgent(ctx context.Context, id string) (*generation.Agent, error) {
	var agent generation.Agent
	err := s.agents.FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching agent %s: %w", id, err)
	}
	return &agent, nil
}

func (s *Mongo) IncrementAgentUsage(ctx context.Context, agentID string) error {
	res, err := s.agents.UpdateOne(ctx,
		bson.M{"_id": agentID},
		bson.M{"$inc": bson.M{"usage_count": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("incrementing usage for agent %s: %w", agentID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
