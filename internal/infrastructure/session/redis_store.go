package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-agreement-engine/internal/domain/interview"
	"loan-agreement-engine/internal/pkg/apperrors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "interview:session:"

// redisCmdable is the subset of *redis.Client the store needs.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

var _ redisCmdable = (*redis.Client)(nil)

// RedisStore keeps interview sessions in Redis so they survive restarts and
// can be shared by several replicas. Expiry is delegated to the key TTL.
type RedisStore struct {
	client redisCmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ interview.SessionStore = (*RedisStore)(nil)

func NewRedisStore(client redisCmdable, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil for RedisStore")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger.With("component", "RedisSessionStore")}
}

func sessionKey(initiator string) string {
	return keyPrefix + initiator
}

func (s *RedisStore) Get(ctx context.Context, initiator string) (*interview.LoanRequest, bool, error) {
	raw, err := s.client.Get(ctx, sessionKey(initiator)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read interview session", "error", err)
		return nil, false, fmt.Errorf("%w: read session: %w", apperrors.ErrInternalServer, err)
	}

	var req interview.LoanRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.WarnContext(ctx, "Discarding unreadable interview session", "error", err)
		_ = s.client.Del(ctx, sessionKey(initiator)).Err()
		return nil, false, nil
	}
	return &req, true, nil
}

func (s *RedisStore) Save(ctx context.Context, req *interview.LoanRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", apperrors.ErrInternalServer, err)
	}
	if err := s.client.Set(ctx, sessionKey(req.Initiator), payload, s.ttl).Err(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write interview session", "error", err)
		return fmt.Errorf("%w: write session: %w", apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, initiator string) error {
	if err := s.client.Del(ctx, sessionKey(initiator)).Err(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete interview session", "error", err)
		return fmt.Errorf("%w: delete session: %w", apperrors.ErrInternalServer, err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired sessions itself.
func (s *RedisStore) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to scan interview sessions", "error", err)
			return 0, fmt.Errorf("%w: scan sessions: %w", apperrors.ErrInternalServer, err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
