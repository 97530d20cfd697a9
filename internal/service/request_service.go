package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// Validation reasons reported by the request service.
const (
	ReasonMissingStatus    = "missing_status"
	ReasonUnknownSubmitter = "unknown_submitter"
)

// RequestService covers intake (submit, list) and lifecycle (status, delete).
type RequestService struct {
	requests   repository.RequestRepository
	dispatcher events.Dispatcher
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	Dispatcher  events.Dispatcher
}

// SubmitInput describes a new request. FileRef is a reference already
// produced by the storage collaborator; it is stored verbatim.
type SubmitInput struct {
	Type        string
	Content     string
	Subject     string
	SubmitterID *int64
	Address     *string
	FileRef     *string
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Submit validates and stores a new request in the submitted state.
func (s *RequestService) Submit(ctx context.Context, input SubmitInput) (*domain.Request, error) {
	if err := ValidateSubmit(input); err != nil {
		return nil, err
	}

	request := &domain.Request{
		Type:        strings.TrimSpace(input.Type),
		Content:     strings.TrimSpace(input.Content),
		Subject:     strings.TrimSpace(input.Subject),
		SubmitterID: input.SubmitterID,
		Address:     normalizeOptional(input.Address),
		Status:      domain.RequestStatusSubmitted,
		FileRef:     normalizeOptional(input.FileRef),
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, apperrors.NewValidationError(ReasonUnknownSubmitter, "submitter does not exist")
		}
		return nil, apperrors.NewStoreError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventRequestSubmitted,
		SubjectID: request.ID,
		ActorID:   request.SubmitterID,
		Payload: events.RequestSubmittedPayload{
			Type:          request.Type,
			Subject:       request.Subject,
			HasAttachment: request.FileRef != nil,
		},
	})
	return request, nil
}

// ValidateSubmit checks the required fields of a submission. Handlers call it
// before persisting an attachment.
func ValidateSubmit(input SubmitInput) error {
	if strings.TrimSpace(input.Type) == "" || strings.TrimSpace(input.Content) == "" || strings.TrimSpace(input.Subject) == "" {
		return apperrors.NewValidationError(ReasonMissingFields, "type, content and subject are required")
	}
	return nil
}

// List returns every stored request.
func (s *RequestService) List(ctx context.Context) ([]domain.Request, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return requests, nil
}

// UpdateStatus overwrites the status label of a request. Any non-empty
// value is accepted.
func (s *RequestService) UpdateStatus(ctx context.Context, id int64, status string) error {
	newStatus := domain.RequestStatus(strings.TrimSpace(status))
	if newStatus == "" {
		return apperrors.NewValidationError(ReasonMissingStatus, "status is required")
	}

	if err := s.requests.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return apperrors.NewStoreError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventRequestStatusChanged,
		SubjectID: id,
		Payload:   events.RequestStatusChangedPayload{NewStatus: newStatus},
	})
	return nil
}

// Delete removes a request. Deleting a missing id succeeds.
func (s *RequestService) Delete(ctx context.Context, id int64) error {
	if err := s.requests.Delete(ctx, id); err != nil {
		return apperrors.NewStoreError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventRequestDeleted,
		SubjectID: id,
	})
	return nil
}
