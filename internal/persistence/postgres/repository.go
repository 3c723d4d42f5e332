package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/events"
	"example.com/activities/internal/observability"
)

const selectActivity = `SELECT id, occurred_at, track_id, status, amount::text FROM activities`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Exists reports whether an activity with the given id is stored.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// InsertMany writes activities and their outbox events in a single transaction. Rows whose id is
// already taken are skipped by the primary key, so concurrent ingests of the same id never
// produce duplicates; only rows actually inserted get an outbox event.
func (r *Repository) InsertMany(ctx context.Context, activities []domain.Activity) (stored []domain.Activity, err error) {
	if len(activities) == 0 {
		return nil, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (id, occurred_at, track_id, status, amount)
        VALUES ($1,$2,$3,$4,$5::numeric)
        ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, activity := range activities {
		batch.Queue(insertActivity, activity.ID, activity.OccurredAt, activity.TrackID, string(activity.Status), activity.Amount)
	}

	stored = make([]domain.Activity, 0, len(activities))
	results := tx.SendBatch(ctx, batch)
	for _, activity := range activities {
		tag, execErr := results.Exec()
		if execErr != nil {
			results.Close()
			err = fmt.Errorf("insert activity %s: %w", activity.ID, execErr)
			return nil, err
		}
		if tag.RowsAffected() == 1 {
			stored = append(stored, activity)
		}
	}
	if err = results.Close(); err != nil {
		return nil, err
	}

	for _, activity := range stored {
		if err = r.insertOutbox(ctx, tx, activity); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		observability.RecordActivityPersisted(time.Now())
	}
	return stored, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, activity domain.Activity) error {
	payload := events.ActivityRecorded{
		ActivityID: activity.ID,
		TrackID:    activity.TrackID,
		Status:     string(activity.Status),
		Amount:     activity.Amount,
		OccurredAt: activity.OccurredAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[events.ActivityRecordedType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", events.ActivityRecordedType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		activity.ID,
		events.ActivityRecordedType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(activity),
		body,
		fmt.Sprintf("%s:%s", activity.ID, events.ActivityRecordedType),
	)
	return err
}

// FindByTrack returns every activity of a track, most recent first.
func (r *Repository) FindByTrack(ctx context.Context, trackID string) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, selectActivity+` WHERE track_id = $1 ORDER BY occurred_at DESC, id DESC`, trackID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanActivity)
}

// ListByTrack returns a page of a track's activities ordered by time, newest first.
func (r *Repository) ListByTrack(ctx context.Context, trackID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []interface{}{trackID, limit}
	query := selectActivity + ` WHERE track_id = $1`

	if cursor != nil {
		query += ` AND (occurred_at, id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.ID)
	}

	query += ` ORDER BY occurred_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	results, err := pgx.CollectRows(rows, scanActivity)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

// Walk streams activities ordered by occurred_at, optionally restricted to one track.
func (r *Repository) Walk(ctx context.Context, trackID string, fn func(domain.Activity) error) error {
	query := selectActivity
	args := []interface{}{}
	if trackID != "" {
		query += ` WHERE track_id = $1`
		args = append(args, trackID)
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return err
		}
		if err := fn(activity); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanActivity(row pgx.CollectableRow) (domain.Activity, error) {
	var (
		activity domain.Activity
		status   string
	)
	if err := row.Scan(&activity.ID, &activity.OccurredAt, &activity.TrackID, &status, &activity.Amount); err != nil {
		return domain.Activity{}, err
	}
	activity.Status = domain.Status(status)
	activity.OccurredAt = activity.OccurredAt.UTC()
	return activity, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Activity) string
}

// Events of one track share a partition so consumers observe them in order.
var eventCatalog = map[string]EventMetadata{
	events.ActivityRecordedType: {
		Topic:         "activity_recorded",
		SchemaSubject: "activity_recorded-value",
		PartitionKeyFn: func(a domain.Activity) string {
			return a.TrackID
		},
	},
}
