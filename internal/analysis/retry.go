package analysis

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
)

const (
	DefaultMaxRetries      = 5
	DefaultInitialInterval = 2 * time.Second
)

// Retrier re-invokes a provider call while it is rate limited. Waits double
// from InitialInterval without jitter: 2s, 4s, 8s, 16s, 32s by default. Any
// other error ends the attempt immediately.
type Retrier struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	// OnRetry is called before each wait.
	OnRetry func(err error, wait time.Duration)

	newTimer func() backoff.Timer
}

func NewRetrier() *Retrier {
	return &Retrier{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
	}
}

// WithTimer replaces the wall-clock timer used between attempts.
func (r *Retrier) WithTimer(newTimer func() backoff.Timer) *Retrier {
	r.newTimer = newTimer
	return r
}

func (r *Retrier) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = r.InitialInterval << r.MaxRetries
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx)
}

// Do runs op on behalf of provider until it succeeds, fails with a non
// rate-limit error, the retry budget is spent, or ctx is done. The last error
// is returned unwrapped.
func (r *Retrier) Do(ctx context.Context, provider string, op func() (string, error)) (string, error) {
	var out string
	operation := func() error {
		res, err := op()
		if err != nil {
			if IsRateLimited(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = res
		return nil
	}

	var timer backoff.Timer
	if r.newTimer != nil {
		timer = r.newTimer()
	}

	notify := func(err error, wait time.Duration) {
		metrics.IncProviderRetry(provider)
		logger.Component("analysis").WithFields(logrus.Fields{
			"provider": provider,
			"wait":     wait.String(),
		}).Warn("rate limit hit, retrying")
		if r.OnRetry != nil {
			r.OnRetry(err, wait)
		}
	}

	if err := backoff.RetryNotifyWithTimer(operation, r.policy(ctx), notify, timer); err != nil {
		return "", err
	}
	return out, nil
}
