package paginate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/metrics"
)

// Producer fetches one page given the continuation cursor from the previous
// page, and returns the page together with the cursor for the next call.
//
// The first invocation receives a nil cursor. Returning a nil page signals
// completion; it is the only stop condition the engine honors. Returning an
// error aborts the whole fetch with that error, unmodified.
type Producer func(ctx context.Context, cursor Cursor) (*Page, Cursor, error)

// EngineConfig configures a fetch engine.
type EngineConfig struct {
	// MinPageDelay is an optional minimum delay between consecutive page
	// requests, independent of any retry backoff inside the producer.
	// Zero disables it.
	MinPageDelay time.Duration

	// Limiter, when set, gates admission of every page request. A single
	// limiter may be shared by concurrent sessions hitting the same host.
	Limiter httpx.Limiter
}

// Engine drives a producer to completion, merging pages into one
// schema-stable result. Pages are fetched strictly sequentially: page N+1's
// request is built from data extracted from page N's response.
type Engine struct {
	config EngineConfig
	logger *zap.Logger
}

// NewEngine creates an engine. A nil logger is replaced with a no-op logger.
func NewEngine(config EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config: config,
		logger: logger.With(zap.String("component", "fetch_engine")),
	}
}

// FetchAll invokes producer repeatedly until it returns a nil page, merging
// every page into a single result conformed to the first non-empty page's
// field set.
//
// Cancellation is checked before each page request; on cancellation or any
// producer error the pages accumulated so far are discarded and the error is
// returned. A truncated multi-page fetch silently under-reports data, which
// is worse than a hard failure for analytical consumers.
func (e *Engine) FetchAll(ctx context.Context, producer Producer) (*Result, error) {
	if producer == nil {
		return nil, fetcherrors.New(fetcherrors.KindConfig, "producer is required")
	}

	result := &Result{}
	var cursor Cursor
	start := time.Now()

	for pageNum := 0; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, fetcherrors.Wrap(err, fetcherrors.KindCancelled, "fetch cancelled").
				WithDetail("pages_fetched", pageNum)
		}

		if pageNum > 0 && e.config.MinPageDelay > 0 {
			if err := e.sleep(ctx, e.config.MinPageDelay); err != nil {
				return nil, fetcherrors.Wrap(err, fetcherrors.KindCancelled, "fetch cancelled").
					WithDetail("pages_fetched", pageNum)
			}
		}

		if e.config.Limiter != nil {
			if err := e.config.Limiter.Wait(ctx); err != nil {
				return nil, fetcherrors.Wrap(err, fetcherrors.KindCancelled, "fetch cancelled").
					WithDetail("pages_fetched", pageNum)
			}
		}

		page, next, err := producer(ctx, cursor)
		if err != nil {
			// Propagate unmodified; partial results are discarded.
			return nil, err
		}
		if page == nil {
			break
		}

		e.merge(result, page)
		metrics.ObservePage(len(page.Rows))

		e.logger.Debug("page merged",
			zap.Int("page", pageNum+1),
			zap.Int("rows", len(page.Rows)),
			zap.Int("total_rows", len(result.Rows)))

		cursor = next
	}

	e.logger.Info("fetch complete",
		zap.Int("pages", result.Pages),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// merge appends page rows to the result, conforming each row to the
// canonical field set. The first non-empty page establishes that set; later
// pages have extra fields dropped and absent fields filled with Missing.
func (e *Engine) merge(result *Result, page *Page) {
	result.Pages++

	if result.Fields == nil && len(page.Rows) > 0 {
		result.Fields = page.fieldNames()
	}
	if len(page.Rows) == 0 {
		return
	}

	for _, row := range page.Rows {
		result.Rows = append(result.Rows, conform(row, result.Fields))
	}
}

// conform projects a row onto the canonical field set into a fresh map so
// the result never aliases producer-owned maps. A present-but-nil value
// stays nil while an absent field becomes the Missing marker.
func conform(row Row, fields []string) Row {
	out := make(Row, len(fields))
	for _, field := range fields {
		if value, ok := row[field]; ok {
			out[field] = value
		} else {
			out[field] = Missing
		}
	}
	return out
}

// sleep waits for d or until ctx is done.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
