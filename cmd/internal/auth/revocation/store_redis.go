package revocation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces revocation keys.
const DefaultRedisKeyPrefix = "warden:revoked:"

// RedisStore keeps entries as keys with a native TTL.
//
// SET NX gives the same single-winner guarantee as the Postgres primary key.
// Keys expire at ExpiresAt; an ExpiresAt already in the past is stored
// without expiry so the entry is still present.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps client. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("revocation: parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) key(token string) string { return s.prefix + token }

func (s *RedisStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation.IsRevoked: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		ttl = 0
	}

	ok, err := s.client.SetNX(ctx, s.key(token), strconv.FormatInt(expiresAt.UnixMilli(), 10), ttl).Result()
	if err != nil {
		return fmt.Errorf("revocation.Revoke: %w", err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}
