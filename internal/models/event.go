package models

import (
	"time"
)

// EventType categorizes store events.
type EventType string

const (
	EventTypeAgentCreated EventType = "agent.created"
	EventTypeAgentUpdated EventType = "agent.updated"
	EventTypeAgentDeleted EventType = "agent.deleted"

	EventTypeTaskCreated EventType = "task.created"
	EventTypeTaskUpdated EventType = "task.updated"
	EventTypeTaskDeleted EventType = "task.deleted"

	// EventTypeStoreCommitted closes every logical store operation.
	EventTypeStoreCommitted EventType = "store.committed"
	// EventTypeStoreReplaced follows a bulk load; it is not flushed back.
	EventTypeStoreReplaced EventType = "store.replaced"
)

// EntityType identifies what an event is about.
type EntityType string

const (
	EntityTypeAgent EntityType = "agent"
	EntityTypeTask  EntityType = "task"
	EntityTypeStore EntityType = "store"
)

// Event is a notification about a store change.
type Event struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Type       EventType  `json:"type"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id,omitempty"`

	// Changes counts the entity events a commit closes.
	Changes int `json:"changes,omitempty"`
}
