package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerificationCodeRepository keeps at most one pending code per e-mail.
type VerificationCodeRepository interface {
	// Save overwrites any pending code for email. A zero ttl keeps the code until consumed.
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Consume deletes the pending code for email only if it equals code.
	Consume(ctx context.Context, email, code string) (bool, error)
}

// consumeScript makes compare-and-delete atomic, so concurrent verifies
// for the same address cannot both succeed.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type verificationCodeRepository struct {
	client *redis.Client
	prefix string
}

// NewVerificationCodeRepository returns a Redis-backed implementation.
func NewVerificationCodeRepository(client *redis.Client, prefix string) VerificationCodeRepository {
	if prefix == "" {
		prefix = "verification:code:"
	}
	return &verificationCodeRepository{client: client, prefix: prefix}
}

func (r *verificationCodeRepository) key(email string) string {
	return r.prefix + strings.TrimSpace(email)
}

func (r *verificationCodeRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(email), code, ttl).Err()
}

func (r *verificationCodeRepository) Consume(ctx context.Context, email, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	deleted, err := consumeScript.Run(ctx, r.client, []string{r.key(email)}, code).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
