package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/api/http/handlers"
	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/observability"
	"github.com/spec-kit/intake-service/internal/repository"
	"github.com/spec-kit/intake-service/internal/service"
	"github.com/spec-kit/intake-service/internal/storage"
)

type memoryAccounts struct {
	mu       sync.Mutex
	accounts []domain.Account
}

func (m *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	account.ID = int64(len(m.accounts) + 1)
	account.CreatedAt = time.Now()
	m.accounts = append(m.accounts, *account)
	return nil
}

func (m *memoryAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Username == username {
			a := account
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if account.Username == username || account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccounts) List(_ context.Context) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Account(nil), m.accounts...), nil
}

type memoryRequests struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]domain.Request
	accounts *memoryAccounts
}

func (m *memoryRequests) Create(_ context.Context, request *domain.Request) error {
	if request.SubmitterID != nil && !m.accountExists(*request.SubmitterID) {
		return errors.Join(repository.ErrForeignKey, &pgconn.PgError{Code: "23503"})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	request.ID = m.nextID
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	m.requests[request.ID] = *request
	return nil
}

func (m *memoryRequests) accountExists(id int64) bool {
	m.accounts.mu.Lock()
	defer m.accounts.mu.Unlock()
	for _, account := range m.accounts.accounts {
		if account.ID == id {
			return true
		}
	}
	return false
}

func (m *memoryRequests) List(_ context.Context) ([]domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Request, 0, len(m.requests))
	for _, request := range m.requests {
		result = append(result, request)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryRequests) UpdateStatus(_ context.Context, id int64, status domain.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	request, ok := m.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	request.Status = status
	m.requests[id] = request
	return nil
}

func (m *memoryRequests) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
	return nil
}

type capturingMailer struct {
	mu   sync.Mutex
	last map[string]string
}

func (m *capturingMailer) Send(_ context.Context, to, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[to] = body
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}`)

func (m *capturingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return codePattern.FindString(m.last[to])
}

type testServer struct {
	app       *fiber.App
	mailer    *capturingMailer
	uploadDir string
}

func (s *testServer) uploadedFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	return len(entries)
}

func newTestServer(t *testing.T, allowAnonymous bool) *testServer {
	t.Helper()

	cfg := config.Config{
		Auth:     config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
		Storage:  config.StorageConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads", MaxUploadBytes: 1 << 20},
		Requests: config.RequestsConfig{AllowAnonymous: allowAnonymous},
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dispatcher := events.NewInMemoryDispatcher()
	accounts := &memoryAccounts{}
	accountSvc := service.NewAccountService(cfg, service.AccountDependencies{
		AccountRepo: accounts,
		Dispatcher:  dispatcher,
	})
	requestSvc := service.NewRequestService(service.RequestDependencies{
		RequestRepo: &memoryRequests{requests: map[int64]domain.Request{}, accounts: accounts},
		Dispatcher:  dispatcher,
	})
	mailer := &capturingMailer{last: map[string]string{}}
	verificationSvc := service.NewVerificationService(
		config.VerificationConfig{CodeTTLMinutes: 10},
		repository.NewVerificationCodeRepository(client, "verification:code:"),
		mailer,
	)
	files, err := storage.NewLocalStore(cfg.Storage)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0, "*")
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("intake", "test", nil, nil, metrics),
		Accounts:       handlers.NewAccountsHandler(accountSvc),
		Requests:       handlers.NewRequestsHandler(requestSvc, files, allowAnonymous),
		Verification:   handlers.NewVerificationHandler(verificationSvc),
		Upload:         handlers.NewUploadHandler(files),
		AuthMiddleware: auth.NewAuthMiddleware(accountSvc.TokenManager()),
		AllowAnonymous: allowAnonymous,
		UploadDir:      files.Dir(),
		PublicPrefix:   files.PublicPrefix(),
	})
	return &testServer{app: app, mailer: mailer, uploadDir: cfg.Storage.UploadDir}
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func (s *testServer) json(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(payload))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.do(t, req)
}

func multipartRequest(t *testing.T, path, token string, fields map[string]string, fileName, fileBody string) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(nethttp.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object in %v", body)
	return d
}

func errorReason(body map[string]any) (string, string) {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	details, _ := e["details"].(map[string]any)
	reason, _ := details["reason"].(string)
	return code, reason
}

func registerAlice(t *testing.T, s *testServer) {
	t.Helper()
	status, body := s.json(t, nethttp.MethodPost, "/register", "", map[string]any{
		"username": "alice1", "password": "Passw0rdX", "email": "a@x.io", "full_name": "Alice",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, float64(1), data(t, body)["id"])
}

func login(t *testing.T, s *testServer, username, password string) (int, map[string]any) {
	t.Helper()
	return s.json(t, nethttp.MethodPost, "/login", "", map[string]any{"username": username, "password": password})
}

func TestRegisterLoginFlow(t *testing.T) {
	s := newTestServer(t, false)
	registerAlice(t, s)

	status, body := s.json(t, nethttp.MethodPost, "/register", "", map[string]any{
		"username": "alice1", "password": "Passw0rdX", "email": "other@x.io", "full_name": "Alice",
	})
	assert.Equal(t, nethttp.StatusConflict, status)
	code, reason := errorReason(body)
	assert.Equal(t, "CONFLICT", code)
	assert.Equal(t, "duplicate_account", reason)

	status, body = login(t, s, "alice1", "Passw0rdX")
	require.Equal(t, nethttp.StatusOK, status)
	d := data(t, body)
	assert.NotEmpty(t, d["token"])
	assert.Equal(t, "user", d["role"])

	status, body = login(t, s, "alice1", "wrong")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid_credentials", body["reason"])

	status, body = login(t, s, "nobody", "whatever")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "account_not_found", body["reason"])
}

func TestRegisterValidationReason(t *testing.T) {
	s := newTestServer(t, false)
	status, body := s.json(t, nethttp.MethodPost, "/register", "", map[string]any{
		"username": "alice1", "password": "password1", "email": "a@x.io", "full_name": "Alice",
	})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	code, reason := errorReason(body)
	assert.Equal(t, "VALIDATION_FAILED", code)
	assert.Equal(t, "weak_password", reason)
}

func TestAccountsListOmitsPasswordHash(t *testing.T) {
	s := newTestServer(t, false)
	registerAlice(t, s)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, "/api/accounts", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"username":"alice1"`)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "$2a$")
}

func TestSubmitRequiresToken(t *testing.T) {
	s := newTestServer(t, false)
	req := multipartRequest(t, "/requests", "", map[string]string{
		"type": "complaint", "content": "pothole", "subject": "roads",
	}, "", "")
	status, body := s.do(t, req)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	code, reason := errorReason(body)
	assert.Equal(t, "UNAUTHORIZED", code)
	assert.Equal(t, "unauthenticated", reason)

	status, _ = s.json(t, nethttp.MethodPost, "/requests", "garbage", map[string]any{"type": "x"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestSubmitWithAttachmentAndLifecycle(t *testing.T) {
	s := newTestServer(t, false)
	registerAlice(t, s)
	_, body := login(t, s, "alice1", "Passw0rdX")
	token := data(t, body)["token"].(string)

	req := multipartRequest(t, "/requests", token, map[string]string{
		"type": "complaint", "content": "pothole", "subject": "roads", "address": "Main St 1",
	}, "photo.jpg", "jpeg-bytes")
	status, body := s.do(t, req)
	require.Equal(t, nethttp.StatusCreated, status)
	created := data(t, body)
	id := created["id"].(float64)
	fileRef, _ := created["file_ref"].(string)
	require.True(t, strings.HasPrefix(fileRef, "/uploads/"), fileRef)
	assert.True(t, strings.HasSuffix(fileRef, "photo.jpg"), fileRef)

	resp, err := s.app.Test(httptest.NewRequest(nethttp.MethodGet, fileRef, nil))
	require.NoError(t, err)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg-bytes", string(served))

	status, body = s.json(t, nethttp.MethodGet, "/requests", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "submitted", item["status"])
	assert.Equal(t, float64(1), item["submitter_id"])
	assert.Equal(t, fileRef, item["file_ref"])

	status, body = s.json(t, nethttp.MethodPut, "/requests/1", "", map[string]any{"new_status": "in_progress"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "in_progress", data(t, body)["status"])
	assert.Equal(t, id, data(t, body)["id"])

	status, body = s.json(t, nethttp.MethodPut, "/requests/1", "", map[string]any{"status": " done "})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "done", data(t, body)["status"])
	_, body = s.json(t, nethttp.MethodGet, "/requests", "", nil)
	assert.Equal(t, "done", body["data"].([]any)[0].(map[string]any)["status"])

	status, body = s.json(t, nethttp.MethodPut, "/requests/99", "", map[string]any{"new_status": "completed"})
	assert.Equal(t, nethttp.StatusNotFound, status)
	code, _ := errorReason(body)
	assert.Equal(t, "NOT_FOUND", code)

	status, body = s.json(t, nethttp.MethodPut, "/requests/1", "", map[string]any{"new_status": "  "})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	_, reason := errorReason(body)
	assert.Equal(t, "missing_status", reason)

	status, _ = s.json(t, nethttp.MethodPut, "/requests/abc", "", map[string]any{"status": "completed"})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, _ = s.json(t, nethttp.MethodDelete, "/requests/1", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, _ = s.json(t, nethttp.MethodDelete, "/requests/1", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	_, body = s.json(t, nethttp.MethodGet, "/requests", "", nil)
	assert.Empty(t, body["data"])
}

func TestSubmitWithUploadedReference(t *testing.T) {
	s := newTestServer(t, false)
	registerAlice(t, s)
	_, body := login(t, s, "alice1", "Passw0rdX")
	token := data(t, body)["token"].(string)

	status, body := s.do(t, multipartRequest(t, "/api/upload", "", nil, "scan.pdf", "pdf"))
	require.Equal(t, nethttp.StatusCreated, status)
	ref := data(t, body)["path"].(string)

	status, body = s.json(t, nethttp.MethodPost, "/api/requests", token, map[string]any{
		"type": "request", "content": "streetlight", "subject": "lights", "file_ref": ref,
	})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, ref, data(t, body)["file_ref"])
}

func TestUploadRequiresFile(t *testing.T) {
	s := newTestServer(t, false)
	status, body := s.do(t, multipartRequest(t, "/upload", "", map[string]string{"note": "x"}, "", ""))
	assert.Equal(t, nethttp.StatusBadRequest, status)
	_, reason := errorReason(body)
	assert.Equal(t, "missing_file", reason)
}

func TestSubmitMissingFields(t *testing.T) {
	s := newTestServer(t, true)
	status, body := s.json(t, nethttp.MethodPost, "/requests", "", map[string]any{"type": "complaint"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	_, reason := errorReason(body)
	assert.Equal(t, "missing_fields", reason)
}

func TestAnonymousSubmission(t *testing.T) {
	s := newTestServer(t, true)
	registerAlice(t, s)

	status, body := s.json(t, nethttp.MethodPost, "/requests", "", map[string]any{
		"type": "suggestion", "content": "more benches", "subject": "parks", "submitter_id": 1,
	})
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Nil(t, data(t, body)["file_ref"])

	status, _ = s.json(t, nethttp.MethodPost, "/requests", "", map[string]any{
		"type": "suggestion", "content": "fountain", "subject": "parks",
	})
	require.Equal(t, nethttp.StatusCreated, status)

	_, body = s.json(t, nethttp.MethodGet, "/requests", "", nil)
	items := body["data"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, float64(1), items[0].(map[string]any)["submitter_id"])
	assert.Nil(t, items[1].(map[string]any)["submitter_id"])
}

func TestAnonymousSubmissionUnknownSubmitter(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/requests", "", map[string]string{
		"type": "complaint", "content": "pothole", "subject": "roads", "submitter_id": "7",
	}, "photo.jpg", "jpeg-bytes")
	status, body := s.do(t, req)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	code, reason := errorReason(body)
	assert.Equal(t, "VALIDATION_FAILED", code)
	assert.Equal(t, "unknown_submitter", reason)
	assert.Zero(t, s.uploadedFiles(t))
}

func TestRejectedSubmissionLeavesNoFile(t *testing.T) {
	s := newTestServer(t, false)
	registerAlice(t, s)
	_, body := login(t, s, "alice1", "Passw0rdX")
	token := data(t, body)["token"].(string)

	for i := 0; i < 3; i++ {
		req := multipartRequest(t, "/requests", token, map[string]string{"type": "complaint"}, "photo.jpg", "jpeg-bytes")
		status, body := s.do(t, req)
		require.Equal(t, nethttp.StatusBadRequest, status)
		_, reason := errorReason(body)
		require.Equal(t, "missing_fields", reason)
	}
	assert.Zero(t, s.uploadedFiles(t))

	req := multipartRequest(t, "/requests", token, map[string]string{
		"type": "complaint", "content": "pothole", "subject": "roads",
	}, "photo.jpg", "jpeg-bytes")
	status, _ := s.do(t, req)
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, 1, s.uploadedFiles(t))
}

func TestVerificationFlow(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.json(t, nethttp.MethodPost, "/verification/send", "", map[string]any{"email": "u@x.io"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "sent", data(t, body)["status"])
	code := s.mailer.code("u@x.io")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	status, body = s.json(t, nethttp.MethodPost, "/verification/verify", "", map[string]any{"email": "u@x.io", "code": wrong})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	errCode, _ := errorReason(body)
	assert.Equal(t, "CODE_MISMATCH", errCode)

	status, body = s.json(t, nethttp.MethodPost, "/verification/verify", "", map[string]any{"email": "u@x.io", "code": code})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "verified", data(t, body)["status"])

	status, _ = s.json(t, nethttp.MethodPost, "/verification/verify", "", map[string]any{"email": "u@x.io", "code": code})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, body = s.json(t, nethttp.MethodPost, "/verification/send", "", map[string]any{})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	_, reason := errorReason(body)
	assert.Equal(t, "missing_email", reason)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t, false)

	status, body := s.json(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = s.json(t, nethttp.MethodGet, "/nope", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	code, _ := errorReason(body)
	assert.Equal(t, "NOT_FOUND", code)

	status, body = s.json(t, nethttp.MethodGet, "/health/metrics", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, data(t, body), "requests")
}
