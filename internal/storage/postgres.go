package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"streamrouter/internal/constants"
	"streamrouter/internal/routing"
	"streamrouter/pkg/metrics"
)

const enabledStreamsQuery = `
	SELECT s.id, s.title, s.description, s.created_at, s.updated_at,
	       r.id, r.type, r.value, r.inverted, r.description, r.position
	FROM streams s
	LEFT JOIN stream_rules r ON r.stream_id = s.id
	WHERE s.disabled = FALSE
	ORDER BY s.title, s.id, r.position, r.id
`

// PostgresRepository reads the stream catalogue from a relational schema. It
// is read-only; streams are managed through the MongoDB backend.
type PostgresRepository struct {
	db      *sql.DB
	service string
}

func NewPostgresRepository(db *sql.DB, service string) *PostgresRepository {
	return &PostgresRepository{db: db, service: service}
}

func (r *PostgresRepository) FetchEnabledStreams(ctx context.Context) (streams []routing.Stream, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.IncDatabaseQuery(r.service, constants.StorageBackendPostgres, "fetch_enabled", status)
		metrics.ObserveDatabaseQueryDuration(r.service, constants.StorageBackendPostgres, "fetch_enabled", time.Since(start))
	}()

	rows, err := r.db.QueryContext(ctx, enabledStreamsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query streams: %w", err)
	}
	defer rows.Close()

	streams = make([]routing.Stream, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			s        routing.Stream
			ruleID   sql.NullString
			ruleType sql.NullInt64
			value    sql.NullString
			inverted sql.NullBool
			ruleDesc sql.NullString
			position sql.NullInt64
		)
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&ruleID, &ruleType, &value, &inverted, &ruleDesc, &position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}

		i, seen := index[s.ID]
		if !seen {
			s.Rules = []routing.StreamRule{}
			streams = append(streams, s)
			i = len(streams) - 1
			index[s.ID] = i
		}

		if !ruleID.Valid {
			continue
		}
		streams[i].Rules = append(streams[i].Rules, routing.StreamRule{
			ID:          ruleID.String,
			StreamID:    s.ID,
			Type:        routing.RuleType(ruleType.Int64),
			Value:       value.String,
			Inverted:    inverted.Bool,
			Description: ruleDesc.String,
			Position:    int(position.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read streams: %w", err)
	}

	return streams, nil
}
