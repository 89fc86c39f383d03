package calcbridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxBackoff caps a single wait between attempts.
const MaxBackoff = 5 * time.Minute

type retryRecorder interface {
	IncRemoteRetry(action string)
}

// RetryInvoker retries transient RemoteCallErrors with exponential backoff:
// the wait after failed attempt n (0-based) is baseDelay * 2^n, capped at MaxBackoff.
type RetryInvoker struct {
	next      Invoker
	retries   int
	baseDelay time.Duration
	logger    *slog.Logger
	metrics   retryRecorder
	sleep     func(ctx context.Context, d time.Duration) error
}

type RetryOption func(*RetryInvoker)

func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(r *RetryInvoker) { r.logger = logger }
}

func WithRetryMetrics(m retryRecorder) RetryOption {
	return func(r *RetryInvoker) { r.metrics = m }
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *RetryInvoker) { r.sleep = sleep }
}

func NewRetryInvoker(next Invoker, retries int, baseDelay time.Duration, opts ...RetryOption) *RetryInvoker {
	r := &RetryInvoker{
		next:      next,
		retries:   max(retries, 0),
		baseDelay: baseDelay,
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newBackOff builds the per-call schedule: no jitter, doubling from baseDelay,
// stopping after the configured number of retries.
func (r *RetryInvoker) newBackOff() backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     r.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         MaxBackoff,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(r.retries))
}

func (r *RetryInvoker) Invoke(ctx context.Context, req Request) (Response, error) {
	schedule := r.newBackOff()
	var lastErr error
	attempts := 0
	for {
		attempts++
		resp, err := r.next.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			break
		}

		r.logger.Warn("remote calculation failed, retrying",
			"action", string(req.Action()),
			"attempt", attempts,
			"delay", delay,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.IncRemoteRetry(string(req.Action()))
		}
		if err := r.sleep(ctx, delay); err != nil {
			return Response{}, err
		}
	}

	var rce *RemoteCallError
	if errors.As(lastErr, &rce) {
		final := *rce
		final.Attempts = attempts
		return Response{}, &final
	}
	return Response{}, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
