// Package events defines the payloads published for downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ActivityRecordedType is the outbox event type emitted for every stored activity.
const ActivityRecordedType = "activity.recorded"

// ActivityRecorded is emitted once per activity accepted by ingestion.
type ActivityRecorded struct {
	ActivityID string    `json:"activity_id"`
	TrackID    string    `json:"track_id"`
	Status     string    `json:"status"`
	Amount     string    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecodeActivityRecorded parses an activity.recorded payload. The track id may be blank, as it
// may be on the stored activity.
func DecodeActivityRecorded(payload []byte) (ActivityRecorded, error) {
	var event ActivityRecorded
	if err := json.Unmarshal(payload, &event); err != nil {
		return ActivityRecorded{}, fmt.Errorf("decode %s: %w", ActivityRecordedType, err)
	}
	if event.ActivityID == "" {
		return ActivityRecorded{}, errors.New("activity_id is required")
	}
	return event, nil
}
