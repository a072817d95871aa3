// Package activityevents publishes activity lifecycle notifications via SQS.
package activityevents

import (
	"time"

	"github.com/google/uuid"
)

// Type is the kind of lifecycle change an event describes.
type Type string

const (
	// TypeCreated is emitted after an activity item has been written.
	TypeCreated Type = "activity.created"
	// TypeDeleted is emitted after an activity item delete was issued.
	TypeDeleted Type = "activity.deleted"
)

// Event is the SQS message body for an activity lifecycle change.
type Event struct {
	EventID      string    `json:"eventId"`
	Type         Type      `json:"type"`
	PartitionKey string    `json:"partitionKey"`
	SortKey      string    `json:"sortKey"`
	ActivityType string    `json:"activityType,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// NewEvent returns an Event with a fresh id.
func NewEvent(eventType Type, partitionKey, sortKey, activityType string, occurredAt time.Time) Event {
	return Event{
		EventID:      uuid.NewString(),
		Type:         eventType,
		PartitionKey: partitionKey,
		SortKey:      sortKey,
		ActivityType: activityType,
		OccurredAt:   occurredAt.UTC(),
	}
}
