package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig tunes Retrying.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	Attempts uint64
	// Base is the first backoff delay; later delays follow a Fibonacci sequence.
	Base time.Duration
	// Cap bounds a single delay.
	Cap time.Duration
}

// Retrying wraps a Messaging and retries failed publishes with Fibonacci backoff.
type Retrying struct {
	next Messaging
	cfg  RetryConfig
}

// NewRetrying wraps next. Zero values in cfg fall back to 3 attempts,
// a 100ms base and a 2s cap.
func NewRetrying(next Messaging, cfg RetryConfig) *Retrying {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Base <= 0 {
		cfg.Base = 100 * time.Millisecond
	}
	if cfg.Cap <= 0 {
		cfg.Cap = 2 * time.Second
	}
	return &Retrying{next: next, cfg: cfg}
}

// Publish forwards msg, retrying transport errors until the attempts run out
// or ctx is done. ErrUnsupported and closed-client errors are not retried.
func (r *Retrying) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	b := retry.NewFibonacci(r.cfg.Base)
	b = retry.WithCappedDuration(r.cfg.Cap, b)
	b = retry.WithMaxRetries(r.cfg.Attempts-1, b)

	var res PublishResult
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		out, err := r.next.Publish(ctx, destination, msg)
		if err == nil {
			res = out
			return nil
		}
		if errors.Is(err, ErrUnsupported) || errors.Is(err, io.ErrClosedPipe) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		slog.WarnContext(ctx, "messaging publish failed, retrying", "destination", destination, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})

	return res, err
}

// Close closes the wrapped client.
func (r *Retrying) Close() error {
	return r.next.Close()
}
