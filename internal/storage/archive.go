// Package storage persists finished scrape runs to MongoDB.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cliphawk/cliphawk/internal/config"
	"github.com/cliphawk/cliphawk/internal/scrape"
)

// Archive writes finished runs to a MongoDB collection, one document per
// run keyed by its run ID.
type Archive struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewArchive connects to MongoDB and verifies the connection.
func NewArchive(cfg *config.StorageConfig, logger *slog.Logger) (*Archive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &Archive{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.With("component", "run_archive"),
	}, nil
}

// SaveRun stores one run document.
func (a *Archive) SaveRun(ctx context.Context, res *scrape.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	doc := bson.M{
		"run_id":      res.Metrics.RunID,
		"mode":        res.Metrics.Mode,
		"query":       res.Metrics.Query,
		"archived_at": time.Now().UTC(),
		"metrics":     res.Metrics,
		"items":       res.Items,
	}

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	a.count++
	a.logger.Debug("run archived", "run_id", res.Metrics.RunID, "items", len(res.Items), "total_runs", a.count)
	return nil
}

func (a *Archive) Close() error {
	a.logger.Info("run archive closing", "total_runs", a.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}
