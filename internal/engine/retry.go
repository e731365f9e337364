package engine

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// maxBackoffDelay bounds Exponential/Linear growth so a pipeline with a
// generous delay and many retries can't leave a module queued for hours.
const maxBackoffDelay = 5 * time.Minute

// backOffFor builds a backoff.BackOff reproducing spec.md §4.8's retry-delay
// formulas exactly: Fixed is constant, Exponential matches
// cenkalti/backoff/v4's own doubling curve when randomization is disabled
// (delay, delay·2, delay·4, ... == delay·2^(attempt-1)), and Linear — which
// the library has no built-in policy for — is a small custom BackOff
// implementing the same interface.
func backOffFor(strategy dagspec.BackoffStrategy, delay time.Duration) backoff.BackOff {
	switch strategy {
	case dagspec.BackoffLinear:
		return &linearBackOff{delay: delay, max: maxBackoffDelay}
	case dagspec.BackoffExponential:
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = delay
		b.Multiplier = 2
		b.MaxInterval = maxBackoffDelay
		b.MaxElapsedTime = 0
		b.RandomizationFactor = 0
		b.Reset()
		return b
	default:
		return backoff.NewConstantBackOff(delay)
	}
}

// linearBackOff implements backoff.BackOff for the Linear strategy:
// delay·attempt, capped at max.
type linearBackOff struct {
	delay   time.Duration
	max     time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	d := l.delay * time.Duration(l.attempt)
	if l.max > 0 && d > l.max {
		return l.max
	}
	return d
}

func (l *linearBackOff) Reset() { l.attempt = 0 }
