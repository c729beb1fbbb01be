package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 10 * time.Second

// SweepCycleName guards the settlement sweeper so only one instance runs a cycle.
const SweepCycleName = "settlement:sweep"

// AuctionName returns the lock name that serializes all writes for one auction.
func AuctionName(auctionID uuid.UUID) string {
	return "auction:" + auctionID.String()
}

// ErrNotHeld is returned when a caller releases a lock it no longer owns,
// typically because the TTL expired and another holder took over.
var ErrNotHeld = errors.New("lock not held by this token")

// Manager hands out named token-guarded locks. A lock is owned by whoever
// holds the token returned from Acquire; Release is a no-op for stale tokens.
type Manager interface {
	Acquire(ctx context.Context, name string) (string, error)
	Release(ctx context.Context, name string, token string) error
}

// redisStore defines the operations used by the Redis-backed manager.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key string, value string) (bool, error)
	LockKey(name string) string
}

// RedisManager implements Manager using Redis SETNX + TTL for acquisition and
// an atomic compare-and-delete script for release.
type RedisManager struct {
	client redisStore
	ttl    time.Duration
}

// NewRedisManager constructs a Redis-backed lock manager.
func NewRedisManager(client redisStore, ttl time.Duration) (*RedisManager, error) {
	if client == nil {
		return nil, errors.New("redis client required for locks")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisManager{client: client, ttl: ttl}, nil
}

// Acquire tries to own the named lock for the configured TTL. It returns the
// owner token on success and an empty string when the lock is already held.
func (m *RedisManager) Acquire(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("lock name is required")
	}
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, m.client.LockKey(name), token, m.ttl)
	if err != nil {
		return "", fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release frees the named lock only while it still holds token. A release
// attempt with a stale token returns ErrNotHeld without touching the key.
func (m *RedisManager) Release(ctx context.Context, name string, token string) error {
	if name == "" {
		return errors.New("lock name is required")
	}
	if token == "" {
		return ErrNotHeld
	}
	deleted, err := m.client.CompareAndDelete(ctx, m.client.LockKey(name), token)
	if err != nil {
		return fmt.Errorf("compare-and-delete lock: %w", err)
	}
	if !deleted {
		return ErrNotHeld
	}
	return nil
}
