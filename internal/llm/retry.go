package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// retryingProvider wraps a Provider with a bounded retry loop, grounded on
// pkg/simpleruntime/response_retry.go's attempt-loop-with-logging shape but
// generalized from context-length recovery to plain transient-error retry:
// Think/Speak calls have no prompt to truncate, only a transport hiccup to
// wait out.
type retryingProvider struct {
	inner   Provider
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

// WithRetries wraps inner so Generate is attempted up to retries+1 times,
// per spec.md §6's llm.retries knob. A retries of 0 returns inner unwrapped.
// Waits between attempts double from 2s and are capped at maxBackoff.
func WithRetries(inner Provider, retries int, log zerolog.Logger) Provider {
	if retries <= 0 {
		return inner
	}
	return &retryingProvider{inner: inner, retries: retries, backoff: 2 * time.Second, log: log}
}

const maxBackoff = 10 * time.Second

func (r *retryingProvider) Name() string { return r.inner.Name() }

func (r *retryingProvider) Generate(ctx context.Context, params Params) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		out, err := r.inner.Generate(ctx, params)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.log.Warn().Err(err).Int("attempt", attempt+1).Str("provider", r.inner.Name()).Msg("generation attempt failed")
		if attempt < r.retries {
			delay := r.backoff << attempt
			if delay > maxBackoff || delay <= 0 {
				delay = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return "", lastErr
}
