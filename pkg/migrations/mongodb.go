package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streamrouter/internal/constants"
)

// EnsureMongoIndexes creates the indexes the stream queries rely on.
// Collections are created implicitly on first insert.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	streamIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "disabled", Value: 1}, {Key: "title", Value: 1}},
			Options: options.Index().SetName("idx_streams_disabled_title"),
		},
	}
	if err := createIndexes(ctx, db.Collection(constants.StreamsCollection), streamIndexes); err != nil {
		return err
	}

	ruleIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetName("idx_streamrules_stream_position"),
		},
	}
	if err := createIndexes(ctx, db.Collection(constants.StreamRulesCollection), ruleIndexes); err != nil {
		return err
	}

	auditIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_stream_timestamp"),
		},
	}
	return createIndexes(ctx, db.Collection(constants.AuditCollection), auditIndexes)
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}
