// Package events broadcasts pool, worker and task lifecycle notifications
// to external dashboards. It is fire-and-forget: a failed publish never
// fails the dispatcher, per SPEC_FULL.md §3's re-homing of the
// teacher's internal/events package away from queue semantics.
package events

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of event carried by an Event.
type Type string

const (
	TaskSubmitted      Type = "task.submitted"
	TaskAssigned       Type = "task.assigned"
	TaskCompleted      Type = "task.completed"
	TaskFailed         Type = "task.failed"
	TaskRetrying       Type = "task.retrying"
	WorkerStarted      Type = "worker.started"
	WorkerDecommission Type = "worker.decommissioned"
	PoolStatusChanged  Type = "pool.status_changed"
	QueueDepthSample   Type = "queue.depth"
)

// Event is a single broadcast notification.
type Event struct {
	Type      Type                   `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// New builds an Event stamped with the current time.
func New(eventType Type, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// TaskEventData builds the data payload for task lifecycle events.
func TaskEventData(uid string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{"task_uid": uid}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// WorkerEventData builds the data payload for worker lifecycle events.
func WorkerEventData(index, reason string) map[string]interface{} {
	return map[string]interface{}{
		"worker_index": index,
		"reason":       reason,
	}
}

// PoolEventData builds the data payload for pool status events.
func PoolEventData(name, status string) map[string]interface{} {
	return map[string]interface{}{
		"pool":   name,
		"status": status,
	}
}
