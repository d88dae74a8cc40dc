package keylock

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/gostackhq/reckoner-backend/pkg/errors"
)

// LocalLocker serializes pricing-key writers within a single process. Used
// when Redis is not configured (tests, local development).
type LocalLocker struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	maxWait time.Duration
}

// NewLocalLocker builds an in-process locker with the given max wait.
func NewLocalLocker(maxWait time.Duration) *LocalLocker {
	if maxWait <= 0 {
		maxWait = 20 * time.Second
	}
	return &LocalLocker{
		held:    make(map[string]chan struct{}),
		maxWait: maxWait,
	}
}

// Acquire takes the lock for key, waiting up to maxWait for the current
// holder to release it.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	deadline := time.Now().Add(l.maxWait)
	for {
		l.mu.Lock()
		ch, taken := l.held[key]
		if !taken {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			released := false
			release := func(context.Context) {
				if released {
					return
				}
				released = true
				l.mu.Lock()
				delete(l.held, key)
				l.mu.Unlock()
				close(done)
			}
			return release, nil
		}
		l.mu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, apperrors.New(apperrors.CodeLockTimeout, "pricing key is locked")
		}
		timer := time.NewTimer(wait)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return nil, apperrors.New(apperrors.CodeLockTimeout, "pricing key is locked")
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}
