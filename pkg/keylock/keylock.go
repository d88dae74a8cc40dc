// Package keylock provides short-lived advisory locks over pricing keys so
// concurrent writers for the same (item, channel, company) serialize their
// overlap checks.
package keylock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/gostackhq/reckoner-backend/pkg/config"
	apperrors "github.com/gostackhq/reckoner-backend/pkg/errors"
)

// Locker acquires an exclusive advisory lock on a key, blocking up to the
// configured wait. The returned release func is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context), err error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(parts ...string) string
}

// RedisLocker coordinates locks across processes via SETNX + TTL, retrying
// with backoff until MaxWait elapses.
type RedisLocker struct {
	store   redisStore
	ttl     time.Duration
	maxWait time.Duration
	backoff time.Duration
}

// NewRedisLocker builds a Redis-backed locker from config.
func NewRedisLocker(store redisStore, cfg config.LockConfig) (*RedisLocker, error) {
	if store == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "redis store is required")
	}
	l := &RedisLocker{
		store:   store,
		ttl:     cfg.TTL,
		maxWait: cfg.MaxWait,
		backoff: cfg.Backoff,
	}
	if l.ttl <= 0 {
		l.ttl = 30 * time.Second
	}
	if l.maxWait <= 0 {
		l.maxWait = 20 * time.Second
	}
	if l.backoff <= 0 {
		l.backoff = 200 * time.Millisecond
	}
	return l, nil
}

// Acquire takes the lock for key or fails with a retryable lock-timeout error.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	redisKey := l.store.LockKey(sanitize(key))
	owner := uuid.NewString()

	backoff := retry.WithMaxDuration(l.maxWait, retry.NewConstant(l.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.store.SetNX(ctx, redisKey, owner, l.ttl)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(apperrors.New(apperrors.CodeLockTimeout, "pricing key is locked"))
		}
		return nil
	})
	if err != nil {
		if appErr := apperrors.As(err); appErr != nil {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.CodeLockTimeout, err, "acquiring pricing key lock")
	}

	released := false
	release := func(ctx context.Context) {
		if released {
			return
		}
		released = true
		value, err := l.store.Get(ctx, redisKey)
		if err != nil {
			return
		}
		if value != owner {
			return
		}
		_ = l.store.Del(ctx, redisKey)
	}
	return release, nil
}

// IsNotFound reports whether err is the redis nil reply.
func IsNotFound(err error) bool {
	return err == goredis.Nil
}

func sanitize(key string) string {
	return strings.ReplaceAll(strings.TrimSpace(key), " ", "_")
}
