package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const verificationCodePrefix = "transfercode:"

// RedisVerificationCodeRepository stores per-transfer verification codes with
// their expiry enforced by key TTL. An absent key means the code expired (or
// was already consumed).
type RedisVerificationCodeRepository struct {
	client *redis.Client
}

func NewRedisVerificationCodeRepository(client *redis.Client) *RedisVerificationCodeRepository {
	return &RedisVerificationCodeRepository{client: client}
}

func (r *RedisVerificationCodeRepository) Store(ctx context.Context, requestID uuid.UUID, code string, ttl time.Duration) error {
	key := verificationCodeKey(requestID)
	err := r.client.Set(ctx, key, code, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

func (r *RedisVerificationCodeRepository) Get(ctx context.Context, requestID uuid.UUID) (string, error) {
	code, err := r.client.Get(ctx, verificationCodeKey(requestID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get verification code: %w", err)
	}
	return code, nil
}

func (r *RedisVerificationCodeRepository) Consume(ctx context.Context, requestID uuid.UUID) error {
	err := r.client.Del(ctx, verificationCodeKey(requestID)).Err()
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	return nil
}

func verificationCodeKey(requestID uuid.UUID) string {
	return verificationCodePrefix + requestID.String()
}
