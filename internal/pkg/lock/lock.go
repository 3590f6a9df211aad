package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisc "github.com/gran-publicador/core/internal/pkg/redis"
)

const keyPrefix = "gp:lock:"

// releaseScript deletes the key only while the caller still owns it, so a
// holder whose TTL already expired cannot release someone else's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

const refreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// Service is a distributed TTL lock on Redis. Acquire is the only mechanism
// preventing two scheduler instances from double-processing a publication, so
// it never blocks: a held lock yields ok=false immediately.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service { return &Service{rc: rc} }

func (s *Service) lockKey(key string) string { return keyPrefix + key }

// Acquire attempts to take the lock, returning an ownership token on success.
func (s *Service) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := s.rc.SetNX(ctx, s.lockKey(key), token, ttl)
	if err != nil {
		return "", false, fmt.Errorf("lock acquire %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if the token still owns it. A false return means the
// lock had already expired or been taken over; that is not an error.
func (s *Service) Release(ctx context.Context, key, token string) (bool, error) {
	res, err := s.rc.Eval(ctx, releaseScript, []string{s.lockKey(key)}, token)
	if err != nil {
		return false, fmt.Errorf("lock release %s: %w", key, err)
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// Refresh extends the TTL while the token still owns the lock.
func (s *Service) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	res, err := s.rc.Eval(ctx, refreshScript, []string{s.lockKey(key)}, token, ttl.Milliseconds())
	if err != nil {
		return false, fmt.Errorf("lock refresh %s: %w", key, err)
	}
	n, _ := res.(int64)
	return n == 1, nil
}
