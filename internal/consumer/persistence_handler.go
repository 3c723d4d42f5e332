package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler appends consumed events to the activity_event_log audit table.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event once per topic/partition/offset, so redelivered records are no-ops.
// Events other than activity.recorded are logged without activity or track ids.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	var activityID, trackID *string
	if msg.Activity != nil {
		activityID, trackID = &msg.Activity.ActivityID, &msg.Activity.TrackID
	}

	_, err := h.pool.Exec(ctx,
		`INSERT INTO activity_event_log (event_type, activity_id, track_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		activityID,
		trackID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}
