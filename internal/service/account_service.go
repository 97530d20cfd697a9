package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/auth"
	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// Validation reasons reported by Register.
const (
	ReasonMissingFields = "missing_fields"
	ReasonBadEmail      = "bad_email"
	ReasonWeakPassword  = "weak_password"
	ReasonBadUsername   = "bad_username"
	ReasonDuplicate     = "duplicate_account"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,}$`)

// LoginOutcome distinguishes a successful login from the two soft failures.
type LoginOutcome string

const (
	LoginSucceeded          LoginOutcome = "ok"
	LoginAccountNotFound    LoginOutcome = "account_not_found"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
)

// LoginResult is returned for every login attempt that reached the store.
// Soft failures carry an Outcome and no token.
type LoginResult struct {
	Outcome LoginOutcome
	Token   *domain.Token
	Role    domain.AccountRole
}

// Succeeded reports whether a token was issued.
func (r LoginResult) Succeeded() bool {
	return r.Outcome == LoginSucceeded
}

// RegisterInput carries registration fields.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Phone    *string
}

// AccountService coordinates registration and login flows.
type AccountService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	validate   *validator.Validate
	bcryptCost int
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	return &AccountService{
		accounts:   deps.AccountRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		dispatcher: deps.Dispatcher,
		validate:   validator.New(),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register validates input, rejects duplicates and stores a new account.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	if err := s.validateRegistration(input); err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	if exists {
		return nil, apperrors.NewConflict(ReasonDuplicate, "username or email already registered")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Phone:        normalizeOptional(input.Phone),
		Role:         domain.AccountRoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict(ReasonDuplicate, "username or email already registered")
		}
		return nil, apperrors.NewStoreError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventAccountRegistered,
		SubjectID: account.ID,
		ActorID:   &account.ID,
		Payload:   events.AccountRegisteredPayload{Username: account.Username},
	})
	return account, nil
}

func (s *AccountService) validateRegistration(input RegisterInput) error {
	if input.Username == "" || input.Password == "" || input.Email == "" || strings.TrimSpace(input.FullName) == "" {
		return apperrors.NewValidationError(ReasonMissingFields, "username, password, email and full_name are required")
	}
	if err := s.validate.Var(input.Email, "required,email"); err != nil {
		return apperrors.NewValidationError(ReasonBadEmail, "a valid email address is required")
	}
	if !strongPassword(input.Password) {
		return apperrors.NewValidationError(ReasonWeakPassword,
			"password must be at least 8 characters with an uppercase letter, a lowercase letter and a digit, and no spaces")
	}
	if !usernamePattern.MatchString(input.Username) {
		return apperrors.NewValidationError(ReasonBadUsername, "username must be at least 4 letters or digits")
	}
	return nil
}

// strongPassword: at least 8 characters, no whitespace, one ASCII lowercase,
// one ASCII uppercase and one digit.
func strongPassword(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return false
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// Login authenticates by username. Unknown accounts and wrong passwords are
// soft failures reported in the result, not errors.
func (s *AccountService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, apperrors.NewValidationError(ReasonMissingFields, "username and password are required")
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{Outcome: LoginAccountNotFound}, nil
		}
		return LoginResult{}, apperrors.NewStoreError(err)
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return LoginResult{Outcome: LoginInvalidCredentials}, nil
		}
		return LoginResult{}, apperrors.NewInternalError(err)
	}

	identity := domain.Identity{AccountID: account.ID, Username: account.Username, Role: account.Role}
	token, exp, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return LoginResult{}, apperrors.NewInternalError(err)
	}
	return LoginResult{
		Outcome: LoginSucceeded,
		Token:   &domain.Token{Value: token, Identity: identity, ExpiresAt: exp},
		Role:    account.Role,
	}, nil
}

// ListAccounts returns every account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return accounts, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeOptional(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
