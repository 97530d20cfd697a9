package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/mail"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util/errorutil"
)

// ReasonMissingEmail is reported when Send is called without an address.
const ReasonMissingEmail = "missing_email"

const (
	codeMin  = 100000
	codeSpan = 900000

	verificationSubject = "Verification code"
)

// VerificationService issues and checks one-time e-mail codes.
type VerificationService struct {
	codes   repository.VerificationCodeRepository
	mailer  mail.Mailer
	ttl     time.Duration
	newCode func() (string, error)
}

// NewVerificationService constructs the service.
func NewVerificationService(cfg config.VerificationConfig, codes repository.VerificationCodeRepository, mailer mail.Mailer) *VerificationService {
	return &VerificationService{
		codes:   codes,
		mailer:  mailer,
		ttl:     cfg.CodeTTL(),
		newCode: generateCode,
	}
}

// Send stores a fresh code for email, replacing any pending one, and mails
// it. When delivery fails the stored code stays pending.
func (s *VerificationService) Send(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError(ReasonMissingEmail, "email is required")
	}

	code, err := s.newCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.codes.Save(ctx, email, code, s.ttl); err != nil {
		return apperrors.NewStoreError(err)
	}

	body := fmt.Sprintf("Your verification code is: %s", code)
	if s.ttl > 0 {
		body += fmt.Sprintf("\nIt expires in %d minutes.", int(s.ttl.Minutes()))
	}
	if err := s.mailer.Send(ctx, email, verificationSubject, body); err != nil {
		return apperrors.NewTransportError(err)
	}
	return nil
}

// Verify consumes the pending code for email when it matches exactly.
func (s *VerificationService) Verify(ctx context.Context, email, code string) error {
	ok, err := s.codes.Consume(ctx, strings.TrimSpace(email), code)
	if err != nil {
		return apperrors.NewStoreError(err)
	}
	if !ok {
		return apperrors.NewMismatch("verification code does not match")
	}
	return nil
}

// generateCode returns a uniformly distributed code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
