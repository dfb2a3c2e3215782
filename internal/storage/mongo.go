package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"streamrouter/internal/constants"
	"streamrouter/internal/routing"
	pkgerrors "streamrouter/pkg/errors"
	"streamrouter/pkg/metrics"
)

// MongoRepository keeps streams and their rules in two collections, with
// rules referring to their stream by stream_id.
type MongoRepository struct {
	streams *mongo.Collection
	rules   *mongo.Collection
	service string
}

func NewMongoRepository(db *mongo.Database, service string) *MongoRepository {
	return &MongoRepository{
		streams: db.Collection(constants.StreamsCollection),
		rules:   db.Collection(constants.StreamRulesCollection),
		service: service,
	}
}

// FetchEnabledStreams loads every enabled stream and resolves all of their
// rules with a single query.
func (r *MongoRepository) FetchEnabledStreams(ctx context.Context) (streams []routing.Stream, err error) {
	defer r.observe("fetch_enabled", time.Now(), &err)

	return r.findStreams(ctx, bson.M{"disabled": bson.M{"$ne": true}})
}

func (r *MongoRepository) ListStreams(ctx context.Context) (streams []routing.Stream, err error) {
	defer r.observe("list_streams", time.Now(), &err)

	return r.findStreams(ctx, bson.M{})
}

func (r *MongoRepository) findStreams(ctx context.Context, filter bson.M) ([]routing.Stream, error) {
	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.streams.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}
	defer cursor.Close(ctx)

	var streams []routing.Stream
	if err := cursor.All(ctx, &streams); err != nil {
		return nil, fmt.Errorf("failed to decode streams: %w", err)
	}
	if len(streams) == 0 {
		return []routing.Stream{}, nil
	}

	ids := make([]string, 0, len(streams))
	for _, s := range streams {
		ids = append(ids, s.ID)
	}

	rulesByStream, err := r.rulesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range streams {
		streams[i].Rules = rulesByStream[streams[i].ID]
	}
	return streams, nil
}

func (r *MongoRepository) rulesFor(ctx context.Context, streamIDs []string) (map[string][]routing.StreamRule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stream_id", Value: 1}, {Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.rules.Find(ctx, bson.M{"stream_id": bson.M{"$in": streamIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []routing.StreamRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode stream rules: %w", err)
	}

	out := make(map[string][]routing.StreamRule, len(streamIDs))
	for _, rule := range rules {
		out[rule.StreamID] = append(out[rule.StreamID], rule)
	}
	return out, nil
}

func (r *MongoRepository) GetStream(ctx context.Context, id string) (stream *routing.Stream, err error) {
	defer r.observe("get_stream", time.Now(), &err)

	var s routing.Stream
	err = r.streams.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, streamNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}

	rules, err := r.rulesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	s.Rules = rules[id]
	if s.Rules == nil {
		s.Rules = []routing.StreamRule{}
	}
	return &s, nil
}

// CreateStream inserts the stream and any rules it carries. Missing ids are
// generated.
func (r *MongoRepository) CreateStream(ctx context.Context, stream *routing.Stream) (err error) {
	defer r.observe("create_stream", time.Now(), &err)

	if stream.ID == "" {
		stream.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	if _, err := r.streams.InsertOne(ctx, stream); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("stream '%s' already exists", stream.ID))
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}

	if len(stream.Rules) == 0 {
		stream.Rules = []routing.StreamRule{}
		return nil
	}

	docs := make([]interface{}, 0, len(stream.Rules))
	for i := range stream.Rules {
		prepareRule(&stream.Rules[i], stream.ID, i)
		docs = append(docs, stream.Rules[i])
	}
	if _, err := r.rules.InsertMany(ctx, docs); err != nil {
		if cleanupErr := r.removeStream(context.WithoutCancel(ctx), stream.ID); cleanupErr != nil {
			return fmt.Errorf("failed to create stream rules: %w (cleanup: %v)", err, cleanupErr)
		}
		return fmt.Errorf("failed to create stream rules: %w", err)
	}
	return nil
}

// removeStream undoes a partial CreateStream. Rules inserted before the
// failure are removed too.
func (r *MongoRepository) removeStream(ctx context.Context, id string) error {
	if _, err := r.rules.DeleteMany(ctx, bson.M{"stream_id": id}); err != nil {
		return err
	}
	_, err := r.streams.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// UpdateStream replaces the stream attributes. Rules are managed separately.
func (r *MongoRepository) UpdateStream(ctx context.Context, stream *routing.Stream) (err error) {
	defer r.observe("update_stream", time.Now(), &err)

	stream.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"title":       stream.Title,
		"description": stream.Description,
		"disabled":    stream.Disabled,
		"updated_at":  stream.UpdatedAt,
	}}

	result, err := r.streams.UpdateOne(ctx, bson.M{"_id": stream.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	if result.MatchedCount == 0 {
		return streamNotFound(stream.ID)
	}
	return nil
}

func (r *MongoRepository) SetStreamDisabled(ctx context.Context, id string, disabled bool) (err error) {
	defer r.observe("set_stream_disabled", time.Now(), &err)

	update := bson.M{"$set": bson.M{"disabled": disabled, "updated_at": time.Now().UTC()}}
	result, err := r.streams.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	if result.MatchedCount == 0 {
		return streamNotFound(id)
	}
	return nil
}

// DeleteStream removes the stream and all of its rules.
func (r *MongoRepository) DeleteStream(ctx context.Context, id string) (err error) {
	defer r.observe("delete_stream", time.Now(), &err)

	result, err := r.streams.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete stream: %w", err)
	}
	if result.DeletedCount == 0 {
		return streamNotFound(id)
	}

	if _, err := r.rules.DeleteMany(ctx, bson.M{"stream_id": id}); err != nil {
		return fmt.Errorf("failed to delete stream rules: %w", err)
	}
	return nil
}

// CreateRule appends rule to the end of its stream's rule list.
func (r *MongoRepository) CreateRule(ctx context.Context, rule *routing.StreamRule) (err error) {
	defer r.observe("create_rule", time.Now(), &err)

	count, err := r.streams.CountDocuments(ctx, bson.M{"_id": rule.StreamID})
	if err != nil {
		return fmt.Errorf("failed to check stream: %w", err)
	}
	if count == 0 {
		return streamNotFound(rule.StreamID)
	}

	existing, err := r.rules.CountDocuments(ctx, bson.M{"stream_id": rule.StreamID})
	if err != nil {
		return fmt.Errorf("failed to count stream rules: %w", err)
	}
	prepareRule(rule, rule.StreamID, int(existing))

	if _, err := r.rules.InsertOne(ctx, rule); err != nil {
		return fmt.Errorf("failed to create stream rule: %w", err)
	}
	return r.touch(ctx, rule.StreamID)
}

func (r *MongoRepository) UpdateRule(ctx context.Context, rule *routing.StreamRule) (err error) {
	defer r.observe("update_rule", time.Now(), &err)

	update := bson.M{"$set": bson.M{
		"type":        rule.Type,
		"value":       rule.Value,
		"inverted":    rule.Inverted,
		"description": rule.Description,
	}}
	result, err := r.rules.UpdateOne(ctx, bson.M{"_id": rule.ID, "stream_id": rule.StreamID}, update)
	if err != nil {
		return fmt.Errorf("failed to update stream rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ruleNotFound(rule.ID)
	}
	return r.touch(ctx, rule.StreamID)
}

func (r *MongoRepository) DeleteRule(ctx context.Context, streamID, ruleID string) (err error) {
	defer r.observe("delete_rule", time.Now(), &err)

	result, err := r.rules.DeleteOne(ctx, bson.M{"_id": ruleID, "stream_id": streamID})
	if err != nil {
		return fmt.Errorf("failed to delete stream rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return ruleNotFound(ruleID)
	}
	return r.touch(ctx, streamID)
}

func (r *MongoRepository) touch(ctx context.Context, streamID string) error {
	_, err := r.streams.UpdateOne(ctx, bson.M{"_id": streamID}, bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to update stream timestamp: %w", err)
	}
	return nil
}

func (r *MongoRepository) observe(operation string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery(r.service, constants.StorageBackendMongoDB, operation, status)
	metrics.ObserveDatabaseQueryDuration(r.service, constants.StorageBackendMongoDB, operation, time.Since(start))
}

func prepareRule(rule *routing.StreamRule, streamID string, position int) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.StreamID = streamID
	rule.Position = position
}

func streamNotFound(id string) error {
	return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("stream '%s' not found", id))
}

func ruleNotFound(id string) error {
	return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("stream rule '%s' not found", id))
}
