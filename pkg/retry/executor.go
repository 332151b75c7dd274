package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/metrics"
)

// Operation performs one idempotent network exchange. It must be safely
// repeatable: the executor will invoke it up to Policy.MaxAttempts times.
type Operation func(ctx context.Context) (*httpx.Response, error)

// Executor runs operations under a retry policy. It is stateless between
// calls and safe for concurrent use; all per-request state lives on the
// stack of Execute.
type Executor struct {
	policy Policy
	logger *zap.Logger
}

// NewExecutor creates an executor with the given policy. A nil logger is
// replaced with a no-op logger.
func NewExecutor(policy Policy, logger *zap.Logger) (*Executor, error) {
	if policy.MaxAttempts < 1 {
		return nil, fetcherrors.Newf(fetcherrors.KindConfig,
			"max attempts must be at least 1, got %d", policy.MaxAttempts)
	}
	if policy.RetryableStatusCodes == nil {
		policy.RetryableStatusCodes = StatusCodeSet(DefaultRetryableStatusCodes...)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		policy: policy,
		logger: logger.With(zap.String("component", "retry_executor")),
	}, nil
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute runs op until it produces a non-retryable outcome or the attempt
// budget is exhausted.
//
// Classification per attempt:
//   - transport error: retryable
//   - status in the policy's retryable set: retryable
//   - any other non-2xx status: fails immediately, no further attempts
//   - otherwise: success, the response is returned
//
// Between retryable attempts the executor sleeps for the policy's backoff
// delay; the sleep is interruptible by ctx, in which case a cancellation
// error is returned and no further attempts are made.
func (e *Executor) Execute(ctx context.Context, op Operation) (*httpx.Response, error) {
	var lastErr error
	var lastResp *httpx.Response

	backoff := e.policy.backoff()

	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fetcherrors.Wrap(err, fetcherrors.KindCancelled, "request cancelled").
				WithDetail("attempts", attempt)
		}

		start := time.Now()
		resp, err := op(ctx)
		metrics.ObserveRequest(time.Since(start), err == nil)

		switch {
		case err != nil:
			if fetcherrors.IsCancelled(err) {
				return nil, fetcherrors.Wrap(err, fetcherrors.KindCancelled, "request cancelled").
					WithDetail("attempts", attempt+1)
			}
			lastErr = fetcherrors.Wrap(err, fetcherrors.KindTransport, "transport failure")
			lastResp = nil
			e.logger.Warn("transport failure",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", e.policy.MaxAttempts),
				zap.Error(err))

		case e.policy.IsRetryableStatus(resp.StatusCode):
			lastErr = fetcherrors.Newf(fetcherrors.KindRetryableStatus,
				"upstream returned status %d", resp.StatusCode).
				WithDetail("status", resp.StatusCode)
			lastResp = resp
			e.logger.Warn("retryable status",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", e.policy.MaxAttempts),
				zap.Int("status", resp.StatusCode))

		case !resp.IsSuccess():
			// Hard failure; retrying a 403 or 404 will not change the answer.
			return nil, fetcherrors.Newf(fetcherrors.KindNonRetryableStatus,
				"upstream returned status %d", resp.StatusCode).
				WithDetail("status", resp.StatusCode).
				WithDetail("body", bodySnippet(resp.Body)).
				WithDetail("attempts", attempt+1)

		default:
			return resp, nil
		}

		if attempt+1 >= e.policy.MaxAttempts {
			break
		}

		delay := backoff(attempt)
		metrics.IncRetry()
		if delay > 0 {
			e.logger.Debug("backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fetcherrors.Wrap(ctx.Err(), fetcherrors.KindCancelled,
					"cancelled during backoff").
					WithDetail("attempts", attempt+1)
			case <-timer.C:
			}
		}
	}

	exhausted := fetcherrors.Wrap(lastErr, fetcherrors.KindRetryBudgetExhausted,
		"retry budget exhausted").
		WithDetail("attempts", e.policy.MaxAttempts)
	if lastResp != nil {
		exhausted = exhausted.
			WithDetail("last_status", lastResp.StatusCode).
			WithDetail("last_body", bodySnippet(lastResp.Body))
	}
	return nil, exhausted
}

// bodySnippet truncates a response body for diagnostics.
func bodySnippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
