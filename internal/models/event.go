package models

import "time"

// EventType realtime change notification kind
type EventType string

const (
	EventRequestCreated   EventType = "service-request:created"
	EventRequestAccepted  EventType = "service-request:accepted"
	EventRequestDelegated EventType = "service-request:delegated"
	EventRequestCompleted EventType = "service-request:completed"
	EventRequestCancelled EventType = "service-request:cancelled"
	EventRequestRemoved   EventType = "service-request:removed"
	EventHistoryCleared   EventType = "service-request:history-cleared"
	EventDutyChanged      EventType = "duty-status:changed"
	EventAssignments      EventType = "assignments:changed"
)

// Event one change published to the realtime notifier.
// Request events carry the full updated request; duty events carry the snapshot.
type Event struct {
	Type      EventType       `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Request   *ServiceRequest `json:"request,omitempty"`
	Duty      *DutyStatus     `json:"duty,omitempty"`
	Date      string          `json:"date,omitempty"`
	At        time.Time       `json:"at"`
}
