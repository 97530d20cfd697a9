package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/storage"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// UploadHandler stores attachments ahead of a submission.
type UploadHandler struct {
	files storage.FileStore
}

// NewUploadHandler constructs handler.
func NewUploadHandler(files storage.FileStore) *UploadHandler {
	return &UploadHandler{files: files}
}

// Upload POST /upload. The returned path is handed back only to this caller.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("missing_file", "multipart field \"file\" is required")
	}
	ref, err := saveUpload(c, h.files, file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"path": ref}})
}

func saveUpload(c *fiber.Ctx, files storage.FileStore, file *multipart.FileHeader) (string, error) {
	if files == nil {
		return "", apperrors.NewInternalError(nil)
	}
	ref, err := files.Save(c.UserContext(), file)
	if err != nil {
		return "", uploadError(err)
	}
	return ref, nil
}

func uploadError(err error) error {
	if errors.Is(err, storage.ErrTooLarge) {
		return apperrors.NewValidationError("file_too_large", err.Error())
	}
	return apperrors.NewStoreError(err)
}
