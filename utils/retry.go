package utils

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrAttemptsExhausted is returned by RetryWithBackoff when every attempt
// reported a conflict. Callers map it onto their own error taxonomy.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// RetryWithBackoff runs fn up to maxAttempts times. fn returns done=true when
// its compare-and-swap committed, done=false to request another attempt, or a
// non-nil error to abort immediately. Between attempts it sleeps an
// exponentially growing, jittered delay starting at base.
func RetryWithBackoff(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) (done bool, err error)) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		done, err := fn(attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Jitter(delay)):
		}
		delay *= 2
	}

	return ErrAttemptsExhausted
}

// Jitter spreads a delay uniformly across [d/2, 3d/2) so that racing
// retriers do not wake up in lockstep.
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)))
}
