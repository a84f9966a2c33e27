package sortify

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds re-attempts of transient gateway failures. Permanent
// failures are never retried. Zero values mean "use defaults".
type RetryPolicy struct {
	Attempts int           // total attempts including the first (default: 3)
	Backoff  time.Duration // sleep before the second attempt, doubling after (default: 500ms)
}

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
)

func (p RetryPolicy) attempts() int {
	if p.Attempts <= 0 {
		return defaultRetryAttempts
	}
	return p.Attempts
}

func (p RetryPolicy) backoff() time.Duration {
	if p.Backoff <= 0 {
		return defaultRetryBackoff
	}
	return p.Backoff
}

// classifyWithRetry invokes gw.Classify, retrying transient failures only.
// Retrying lives here, in the pipeline caller — never inside the cache.
func classifyWithRetry(ctx context.Context, gw Gateway, p RetryPolicy, imageBytes []byte, minConfidence float64) ([]Label, error) {
	var lastErr error
	wait := p.backoff()

	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		labels, err := gw.Classify(ctx, imageBytes, minConfidence)
		if err == nil {
			return labels, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
		slog.Debug("sortify: transient classify failure", "attempt", attempt, "error", err.Error())
	}

	return nil, lastErr
}
