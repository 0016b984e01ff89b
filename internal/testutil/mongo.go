// Package testutil holds helpers for tests that need a live MongoDB.
package testutil

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	mongoMigration "defensebook/internal/migrations/mongo"
	"defensebook/pkg/client"
	"defensebook/pkg/config"
	"defensebook/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI       = "MONGO_URI"
	ConnectionTimeout = 10 * time.Second
)

// MongoHelper owns a throwaway database on the server named by MONGO_URI.
// Transactions need that server to be a replica set.
type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to MONGO_URI and creates a fresh database for the
// test. The test is skipped when MONGO_URI is unset.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv(EnvMongoURI)
	if mongoURI == "" {
		t.Skipf("%s not set, skipping MongoDB integration test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "defensebook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	h := &MongoHelper{
		Client:   mc,
		Database: mc.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

// Migrate applies the production collection schema and indexes.
func (m *MongoHelper) Migrate(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	if err := mongoMigration.RunMigration(ctx, m.Client, m.DBName, log); err != nil {
		t.Fatalf("failed to migrate %s: %v", m.DBName, err)
	}
}

// Config returns a service config pointing at the helper's database.
func (m *MongoHelper) Config(loc *time.Location) *config.Config {
	return &config.Config{
		MongoDatabaseName: m.DBName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		Location:          loc,
		Log:               logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
		Client:            &client.Client{Mongo: m.Client},
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string, filter any) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
