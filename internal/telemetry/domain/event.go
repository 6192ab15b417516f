package domain

import (
	"encoding/json"
	"time"
)

// Event represents a telemetry event (optional user scope). Marshaled as JSON
// onto the Kafka topic; the worker and the Loki pusher read the same shape.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
