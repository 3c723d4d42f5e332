package outbox

// activityRecordedSchema is the JSON Schema registered for activity.recorded payloads.
// Amounts travel as decimal strings so no precision is lost between services.
const activityRecordedSchema = `{
  "type": "object",
  "title": "ActivityRecorded",
  "properties": {
    "activity_id": {"type": "string", "maxLength": 20},
    "track_id": {"type": "string", "maxLength": 10},
    "status": {"type": "string", "enum": ["", "A", "S", "R"]},
    "amount": {"type": "string", "pattern": "^-?\\d{1,6}\\.\\d{2}$"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "track_id", "status", "amount", "occurred_at"],
  "additionalProperties": false
}`
