package service

import (
	"context"
	"fmt"
	"megumi/internal/core/domain"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy describes the delay between reconnect attempts.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxAttempts is the number of consecutive failed attempts tolerated, 0 for no limit.
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{InitialDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Delay returns the wait before the given attempt, starting at 1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}

// ReconnectTracker counts consecutive failed connection attempts. A successful open resets the count.
type ReconnectTracker struct {
	mu       sync.Mutex
	policy   RetryPolicy
	attempts int
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewReconnectTracker(policy RetryPolicy) *ReconnectTracker {
	return &ReconnectTracker{policy: policy, sleep: sleep}
}

func (t *ReconnectTracker) Reset() {
	t.mu.Lock()
	t.attempts = 0
	t.mu.Unlock()
}

func (t *ReconnectTracker) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.attempts
}

// Wait records a failed attempt and blocks for the backoff delay. It returns ErrReconnectLimit once the policy
// allows no further attempt.
func (t *ReconnectTracker) Wait(ctx context.Context, cause error) error {
	t.mu.Lock()
	t.attempts++
	attempt := t.attempts
	t.mu.Unlock()

	if t.policy.MaxAttempts > 0 && attempt > t.policy.MaxAttempts {
		return fmt.Errorf("%w after %d attempts: %w", domain.ErrReconnectLimit, attempt-1, cause)
	}

	delay := t.policy.Delay(attempt)
	log.Info().Err(cause).Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting")

	return t.sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
