package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces admission digests in a shared Redis instance.
const redisKeyPrefix = "votegate:admitted:"

// Redis is a Redis-backed ledger. SETNX provides the atomic check-and-mark,
// so multiple gateway processes can share one admission set.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a ledger over an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return NewRedis(client), nil
}

// TryAdmit atomically checks and marks the identity as admitted. Admission
// records never expire; SET NX with no TTL is the whole protocol.
func (r *Redis) TryAdmit(ctx context.Context, canonicalID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+digest(canonicalID), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis admit: %w", err)
	}
	return ok, nil
}

// Admitted reports whether the identity has completed admission.
func (r *Redis) Admitted(ctx context.Context, canonicalID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+digest(canonicalID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis admitted check: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
