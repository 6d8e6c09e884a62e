package rag

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"course-rag/internal/models"
)

// withRetry runs op under the bounded exponential-backoff policy: transient
// failures (network, rate limits, index timeouts) are retried up to the
// configured attempt cap with jittered backoff; input errors and caller
// cancellation fail immediately.
func (s *Service) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RAG.RetryInitial()
	bo.MaxElapsedTime = 0 // the attempt cap bounds us, not wall time

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(s.cfg.RAG.MaxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RAG.RequestTimeout())
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if isPermanent(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func isPermanent(err error) bool {
	return errors.Is(err, models.ErrInvalidInput) ||
		errors.Is(err, models.ErrUnsupportedFormat) ||
		errors.Is(err, models.ErrCorruptDocument) ||
		errors.Is(err, context.Canceled)
}
