package mongo

import (
	"context"
	"fmt"

	"defensebook/internal/bookings/repository"
	"defensebook/internal/migrations/mongo/validators"
	"defensebook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func activeOnly() bson.M {
	return bson.M{"active": true}
}

// BookingsIndexes backs the booking rules. The two partial unique indexes
// are what keep concurrent creates from double-booking.
var BookingsIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{{Key: "requester_id", Value: 1}},
		Options: options.Index().
			SetName(repository.IndexActiveRequester).
			SetUnique(true).
			SetPartialFilterExpression(activeOnly()),
	},
	{
		Keys: bson.D{{Key: "slot_key", Value: 1}},
		Options: options.Index().
			SetName(repository.IndexActiveSlot).
			SetUnique(true).
			SetPartialFilterExpression(activeOnly()),
	},
	{
		Keys:    bson.D{{Key: "active", Value: 1}, {Key: "start_date", Value: 1}},
		Options: options.Index().SetName("active_start_date"),
	},
}

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() map[string]collectionDef {
	return map[string]collectionDef{
		repository.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
