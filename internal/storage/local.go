package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/spec-kit/intake-service/internal/config"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds upload limit")

// FileStore persists an uploaded file and returns the reference clients use
// to fetch it. Remove discards a file by that reference.
type FileStore interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// LocalStore writes uploads to a directory served under PublicPrefix.
type LocalStore struct {
	dir          string
	publicPrefix string
	maxBytes     int64
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(cfg config.StorageConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = "/uploads"
	}
	return &LocalStore{dir: cfg.UploadDir, publicPrefix: prefix, maxBytes: int64(cfg.MaxUploadBytes)}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPrefix returns the URL prefix the directory is served under.
func (s *LocalStore) PublicPrefix() string {
	return s.publicPrefix
}

// Save stores file under a unique name. The returned reference is
// PublicPrefix joined with that name.
func (s *LocalStore) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	name := uuid.NewString() + "-" + sanitizeFilename(file.Filename)
	if err := fasthttp.SaveMultipartFile(file, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path.Join(s.publicPrefix, name), nil
}

// Remove deletes the file behind ref. Unknown references are not an error.
func (s *LocalStore) Remove(_ context.Context, ref string) error {
	name := path.Base(strings.TrimPrefix(ref, s.publicPrefix))
	if name == "." || name == "/" || name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
