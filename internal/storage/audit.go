package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streamrouter/internal/constants"
	"streamrouter/pkg/metrics"
	"streamrouter/pkg/models"
)

// MongoAuditLog appends management changes to the audit collection.
type MongoAuditLog struct {
	entries *mongo.Collection
	service string
}

func NewMongoAuditLog(db *mongo.Database, service string) *MongoAuditLog {
	return &MongoAuditLog{
		entries: db.Collection(constants.AuditCollection),
		service: service,
	}
}

func (a *MongoAuditLog) Record(ctx context.Context, entry *models.AuditEntry) (err error) {
	defer a.observe("record_audit", time.Now(), &err)

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if _, err := a.entries.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to log audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries first. An empty streamID lists all streams.
func (a *MongoAuditLog) List(ctx context.Context, streamID string, limit int) (entries []models.AuditEntry, err error) {
	defer a.observe("list_audit", time.Now(), &err)

	filter := bson.M{}
	if streamID != "" {
		filter["stream_id"] = streamID
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))

	cursor, err := a.entries.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	entries = []models.AuditEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}
	return entries, nil
}

func (a *MongoAuditLog) observe(operation string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(a.service, constants.StorageBackendMongoDB, operation, status)
	metrics.ObserveDatabaseQueryDuration(a.service, constants.StorageBackendMongoDB, operation, time.Since(start))
}
