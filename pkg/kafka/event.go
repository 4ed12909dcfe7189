package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope version written by this package.
const SchemaVersion = 1

// Event is the envelope of every message the storefront publishes. Key
// selects the partition, so events sharing a key are delivered in order.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Key           string            `json:"key"`
	Aggregate     string            `json:"aggregate"`
	SchemaVersion int               `json:"schema_version"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Option customizes an event built by NewEvent.
type Option func(*Event)

// WithSource names the publishing service.
func WithSource(source string) Option {
	return func(e *Event) { e.Source = source }
}

// WithCorrelationID links the event to the request that caused it. An empty
// id is ignored.
func WithCorrelationID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// WithMetadata adds a key-value pair to the event metadata.
func WithMetadata(key, value string) Option {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// NewEvent builds an event of eventType about the aggregate identified by
// key, with data encoded as the JSON payload.
func NewEvent(eventType, aggregate, key string, data any, opts ...Option) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	e := &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		Aggregate:     aggregate,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Data:          payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Decode parses an event envelope.
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodeData parses the event payload into target.
func (e *Event) DecodeData(target any) error {
	return json.Unmarshal(e.Data, target)
}
