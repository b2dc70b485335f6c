package repository

import (
	"context"
	"fmt"
	"time"

	domainRepo "github.com/minervamed/clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type tokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) domainRepo.TokenRepository {
	return &tokenRepository{client: client}
}

func tokenPrefix(refresh bool) string {
	if refresh {
		return "refresh_token"
	}
	return "access_token"
}

func tokenKey(userID uuid.UUID, tokenID string, refresh bool) string {
	return fmt.Sprintf("%s:%s:%s", tokenPrefix(refresh), userID.String(), tokenID)
}

func (r *tokenRepository) Store(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool, ttl time.Duration) error {
	return r.client.Set(ctx, tokenKey(userID, tokenID, refresh), "valid", ttl).Err()
}

func (r *tokenRepository) Exists(ctx context.Context, userID uuid.UUID, tokenID string, refresh bool) (bool, error) {
	n, err := r.client.Exists(ctx, tokenKey(userID, tokenID, refresh)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke deletes the token without knowing its owner. Token ids are UUIDs,
// so the pattern matches at most one key.
func (r *tokenRepository) Revoke(ctx context.Context, tokenID string, refresh bool) error {
	pattern := fmt.Sprintf("%s:*:%s", tokenPrefix(refresh), tokenID)

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
