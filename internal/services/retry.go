package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// RetryPolicy bounds the outer retry driver that re-invokes the whole
// pipeline when a cycle fails fatally.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// RunWithRetry invokes fn until it succeeds or the attempt budget is
// spent, sleeping Backoff between attempts. Only fatal cycle errors reach
// this loop; per-series failures are already isolated inside the cycle.
func RunWithRetry(
	ctx context.Context,
	policy RetryPolicy,
	logger *logrus.Logger,
	fn func(context.Context) (*models.CycleResult, error),
) (*models.CycleResult, error) {
	log := logger.WithField("component", "retry")

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"max":     policy.MaxAttempts,
		}).Error("Sync attempt failed")

		if attempt == policy.MaxAttempts {
			break
		}

		log.WithField("backoff", policy.Backoff).Info("Retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.Backoff):
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", policy.MaxAttempts, lastErr)
}
