package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/intake-service/internal/domain"
)

// SubmitRequest is the form or JSON body of POST /requests. The attachment
// arrives either as a multipart "file" part or as a FileRef from POST /upload.
type SubmitRequest struct {
	Type        string  `json:"type" form:"type"`
	Content     string  `json:"content" form:"content"`
	Subject     string  `json:"subject" form:"subject"`
	Address     *string `json:"address" form:"address"`
	SubmitterID *int64  `json:"submitter_id" form:"submitter_id"`
	FileRef     *string `json:"file_ref" form:"file_ref"`
}

// UpdateStatusRequest payload. Status is accepted as an alias of NewStatus.
type UpdateStatusRequest struct {
	NewStatus string `json:"new_status" form:"new_status"`
	Status    string `json:"status" form:"status"`
}

// Value returns the requested status, trimmed.
func (r UpdateStatusRequest) Value() string {
	if v := strings.TrimSpace(r.NewStatus); v != "" {
		return v
	}
	return strings.TrimSpace(r.Status)
}

// RequestResponse is the serialized request row.
type RequestResponse struct {
	ID          int64                `json:"id"`
	Type        string               `json:"type"`
	Content     string               `json:"content"`
	Subject     string               `json:"subject"`
	SubmitterID *int64               `json:"submitter_id"`
	Address     *string              `json:"address"`
	Status      domain.RequestStatus `json:"status"`
	FileRef     *string              `json:"file_ref"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewRequestResponse maps a request row.
func NewRequestResponse(request domain.Request) RequestResponse {
	return RequestResponse{
		ID:          request.ID,
		Type:        request.Type,
		Content:     request.Content,
		Subject:     request.Subject,
		SubmitterID: request.SubmitterID,
		Address:     request.Address,
		Status:      request.Status,
		FileRef:     request.FileRef,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
}
