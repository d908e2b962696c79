package outbox

const dayCompletedSchema = `{
  "type": "object",
  "title": "DayCompleted",
  "properties": {
    "user_id": {"type": "string"},
    "day": {"type": "integer", "minimum": 1, "maximum": 90},
    "week_number": {"type": "integer", "minimum": 1, "maximum": 13},
    "completed_at": {"type": "string", "format": "date-time"},
    "time_spent_minutes": {"type": "integer", "minimum": 0},
    "quiz_score": {"type": "integer", "minimum": 0}
  },
  "required": ["user_id", "day", "week_number", "completed_at"],
  "additionalProperties": false
}`

const dayReopenedSchema = `{
  "type": "object",
  "title": "DayReopened",
  "properties": {
    "user_id": {"type": "string"},
    "day": {"type": "integer", "minimum": 1, "maximum": 90},
    "week_number": {"type": "integer", "minimum": 1, "maximum": 13},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "day", "week_number", "occurred_at"],
  "additionalProperties": false
}`

const seededSchema = `{
  "type": "object",
  "title": "ProgressSeeded",
  "properties": {
    "user_id": {"type": "string"},
    "days": {"type": "array", "items": {"type": "integer"}},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["user_id", "days", "occurred_at"],
  "additionalProperties": false
}`
