package domain

import "time"

// RequestStatus is a free-text label. The constants are the values the
// intake flow itself uses; staff may set any other non-empty value.
type RequestStatus string

const (
	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
)

// Request is a citizen submission (complaint, request, suggestion).
type Request struct {
	ID          int64
	Type        string
	Content     string
	Subject     string
	SubmitterID *int64
	Address     *string
	Status      RequestStatus
	FileRef     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
