package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default knobs for the exponential backoff policy, carried over from the
// values the Agent Loop used to hardcode per retry site.
const (
	DefaultInitialInterval     = time.Second
	DefaultMaxInterval         = 30 * time.Second
	DefaultMaxElapsedTime      = 2 * time.Minute
	DefaultRandomizationFactor = 0.5
	DefaultMultiplier          = 2.0
	DefaultMaxRetries          = 3
)

// Classification is what a provider-specific classifier returns for one
// error: whether it's worth retrying, and an optional override for how long
// to wait (zero means "use the backoff policy's computed interval").
type Classification struct {
	Retryable bool
	BackoffMs int
}

// Classifier inspects a transport-level error and decides whether it is
// transient. The provider adapters supply one each (rate limits, 5xx,
// connection resets are retryable; auth failures and bad requests are not).
type Classifier func(err error) Classification

// HTTPStatusClassifier builds a Classifier from an error that exposes an
// HTTP status code via a StatusCode() int method, retrying 429 and 5xx responses.
func HTTPStatusClassifier() Classifier {
	return func(err error) Classification {
		var sc statusCoder
		if errors.As(err, &sc) {
			status := sc.StatusCode()
			if status == http.StatusTooManyRequests || status >= 500 {
				return Classification{Retryable: true}
			}
			return Classification{Retryable: false}
		}
		// Unclassifiable errors (connection reset, timeout, EOF mid-stream)
		// are assumed transient: a provider outage looks the same to us as
		// a network blip, and RetryPolicy's MaxElapsedTime bounds the cost
		// of guessing wrong.
		return Classification{Retryable: true}
	}
}

type statusCoder interface {
	StatusCode() int
}

// RetryPolicy wraps a Classifier with the exponential backoff parameters
// used to space out retries.
type RetryPolicy struct {
	Classify            Classifier
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	MaxElapsedTime      time.Duration
	RandomizationFactor float64
	Multiplier          float64
	MaxRetries          uint64
}

// DefaultRetryPolicy returns the policy grounded in the values the session
// loop used before every retry site duplicated them.
func DefaultRetryPolicy(classify Classifier) RetryPolicy {
	return RetryPolicy{
		Classify:            classify,
		InitialInterval:     DefaultInitialInterval,
		MaxInterval:         DefaultMaxInterval,
		MaxElapsedTime:      DefaultMaxElapsedTime,
		RandomizationFactor: DefaultRandomizationFactor,
		Multiplier:          DefaultMultiplier,
		MaxRetries:          DefaultMaxRetries,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	b.RandomizationFactor = p.RandomizationFactor
	b.Multiplier = p.Multiplier
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// ErrAborted is returned by Do when ctx is cancelled while waiting out a
// backoff interval, distinguishing a user abort from a retries-exhausted
// failure.
var ErrAborted = errors.New("transport: aborted during retry backoff")

// Do runs fn, retrying per the policy's Classifier until fn succeeds, a
// classified-fatal error occurs, retries are exhausted, or ctx is
// cancelled. It never retries a non-nil error that Classify marks fatal.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	bo := p.newBackOff(ctx)
	for {
		err := fn()
		if err == nil {
			return nil
		}

		class := p.Classify(err)
		if !class.Retryable {
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		if class.BackoffMs > 0 {
			wait = time.Duration(class.BackoffMs) * time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrAborted
		case <-timer.C:
		}
	}
}
