package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotRevocable is returned for tokens minted without a jti.
var ErrNotRevocable = errors.New("token has no id and cannot be revoked")

// RevocationStore tracks tokens invalidated before their expiry.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// RedisRevocationStore keeps revoked token ids in Redis until they expire.
type RedisRevocationStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocationStore builds the store.
func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: "revoked:"}
}

func (s *RedisRevocationStore) key(tokenID string) string {
	return s.prefix + tokenID
}

// IsRevoked reports whether tokenID was revoked.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke stores tokenID until the token would have expired anyway.
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(tokenID), "1", ttl).Err()
}

// RevokeClaims revokes the token described by claims.
func RevokeClaims(ctx context.Context, store RevocationStore, claims *Claims) error {
	if store == nil {
		return nil
	}
	if claims.TokenID() == "" {
		return ErrNotRevocable
	}
	if claims.ExpiresAt == nil {
		return ErrNotRevocable
	}
	return store.Revoke(ctx, claims.TokenID(), claims.ExpiresAt.Time)
}
