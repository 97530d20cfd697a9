package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/dto"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/service"
	"github.com/spec-kit/intake-service/internal/storage"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// RequestsHandler manages citizen request endpoints.
type RequestsHandler struct {
	service        *service.RequestService
	files          storage.FileStore
	allowAnonymous bool
}

// NewRequestsHandler constructs handler. With allowAnonymous the submitter
// may come from the submitter_id field when no token is presented.
func NewRequestsHandler(requestService *service.RequestService, files storage.FileStore, allowAnonymous bool) *RequestsHandler {
	return &RequestsHandler{service: requestService, files: files, allowAnonymous: allowAnonymous}
}

// Submit POST /requests.
func (h *RequestsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid_payload", "invalid payload")
	}

	input := service.SubmitInput{
		Type:    req.Type,
		Content: req.Content,
		Subject: req.Subject,
		Address: req.Address,
		FileRef: req.FileRef,
	}

	if principal, ok := auth.PrincipalFromContext(c); ok {
		id := principal.AccountID
		input.SubmitterID = &id
	} else if h.allowAnonymous {
		input.SubmitterID = req.SubmitterID
	} else {
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := service.ValidateSubmit(input); err != nil {
		return err
	}

	var savedRef string
	if file, err := c.FormFile("file"); err == nil {
		ref, err := saveUpload(c, h.files, file)
		if err != nil {
			return err
		}
		savedRef = ref
		input.FileRef = &ref
	}

	request, err := h.service.Submit(c.UserContext(), input)
	if err != nil {
		if savedRef != "" {
			_ = h.files.Remove(context.WithoutCancel(c.UserContext()), savedRef)
		}
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"id": request.ID, "file_ref": request.FileRef},
	})
}

// List GET /requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	requests, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RequestResponse, 0, len(requests))
	for _, request := range requests {
		items = append(items, dto.NewRequestResponse(request))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PUT /requests/:id.
func (h *RequestsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid_payload", "invalid payload")
	}
	status := req.Value()
	if err := h.service.UpdateStatus(c.UserContext(), id, status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "status": status}})
}

// Delete DELETE /requests/:id.
func (h *RequestsHandler) Delete(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func requestID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("bad_id", "request id must be a positive integer")
	}
	return id, nil
}
