package inference

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

type retryingGateway struct {
	next       Gateway
	maxRetries uint64
	base       time.Duration
}

// WithRetry wraps g so that transient failures (see IsRetryable) are retried
// up to maxRetries times with exponential backoff starting at base.
func WithRetry(g Gateway, maxRetries int, base time.Duration) Gateway {
	if maxRetries <= 0 {
		return g
	}
	if base <= 0 {
		base = defaultRetryBase
	}
	return &retryingGateway{next: g, maxRetries: uint64(maxRetries), base: base}
}

func (r *retryingGateway) Answer(ctx context.Context, question string) (string, error) {
	var answer string
	b := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		a, err := r.next.Answer(ctx, question)
		if err != nil {
			if IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		answer = a
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}
