package events

import (
	"time"

	"github.com/spec-kit/intake-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered    EventType = "account_registered"
	EventRequestSubmitted     EventType = "request_submitted"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestDeleted       EventType = "request_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Username string `json:"username"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	Type          string `json:"type"`
	Subject       string `json:"subject"`
	HasAttachment bool   `json:"has_attachment"`
}

// RequestStatusChangedPayload payload. Only the new value is known; the
// update is a blind overwrite.
type RequestStatusChangedPayload struct {
	NewStatus domain.RequestStatus `json:"new_status"`
}
