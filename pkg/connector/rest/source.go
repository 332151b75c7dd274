// Package rest provides page producers for REST and GraphQL APIs. A source
// composes the HTTP transport, the credential collaborator and the retry
// executor into a paginate.Producer that the fetch engine can drive.
package rest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/back1ply/pagefetch/pkg/auth"
	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/paginate"
	"github.com/back1ply/pagefetch/pkg/retry"
)

// Source turns a pagination strategy plus decode rules into a producer.
type Source struct {
	strategy    Strategy
	decode      DecodeConfig
	transport   httpx.Transport
	credentials auth.Credentials
	executor    *retry.Executor
	headers     http.Header
	maxPages    int
	logger      *zap.Logger
}

// SourceOptions configures a source. Strategy and Transport are required.
type SourceOptions struct {
	Strategy    Strategy
	Decode      DecodeConfig
	Transport   httpx.Transport
	Credentials auth.Credentials
	Policy      retry.Policy
	// Headers are added to every page request.
	Headers map[string]string
	// MaxPages caps how many pages this producer will fetch; zero means
	// unlimited. The engine itself never enforces a page cap.
	MaxPages int
	Logger   *zap.Logger
}

// NewSource creates a source. The retry policy defaults when zero-valued.
func NewSource(opts SourceOptions) (*Source, error) {
	if opts.Strategy == nil {
		return nil, fetcherrors.New(fetcherrors.KindConfig, "pagination strategy is required")
	}
	if opts.Transport == nil {
		return nil, fetcherrors.New(fetcherrors.KindConfig, "http transport is required")
	}
	if opts.Credentials == nil {
		opts.Credentials = auth.Anonymous{}
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	executor, err := retry.NewExecutor(opts.Policy, opts.Logger)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header, len(opts.Headers))
	for key, value := range opts.Headers {
		headers.Set(key, value)
	}
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	return &Source{
		strategy:    opts.Strategy,
		decode:      opts.Decode,
		transport:   opts.Transport,
		credentials: opts.Credentials,
		executor:    executor,
		headers:     headers,
		maxPages:    opts.MaxPages,
		logger:      opts.Logger.With(zap.String("component", "rest_source")),
	}, nil
}

// exhausted is the private cursor a producer hands back with its final page
// so the next invocation can answer "no more pages" without another request.
type exhausted struct{}

func (exhausted) String() string { return "exhausted" }

// Producer returns the page producer for one fetch-all session. Each session
// needs its own producer; the returned closure tracks the page count for the
// MaxPages cap.
func (s *Source) Producer() paginate.Producer {
	pages := 0

	return func(ctx context.Context, cursor paginate.Cursor) (*paginate.Page, paginate.Cursor, error) {
		if _, done := cursor.(exhausted); done {
			return nil, nil, nil
		}
		if s.maxPages > 0 && pages >= s.maxPages {
			s.logger.Debug("page cap reached", zap.Int("max_pages", s.maxPages))
			return nil, nil, nil
		}

		page, next, err := s.fetchPage(ctx, cursor)
		if err != nil {
			return nil, nil, err
		}
		pages++
		if next == nil {
			next = exhausted{}
		}
		return page, next, nil
	}
}

// fetchPage performs one page request through the retry executor and decodes
// the response.
func (s *Source) fetchPage(ctx context.Context, cursor paginate.Cursor) (*paginate.Page, paginate.Cursor, error) {
	req, err := s.strategy.Request(cursor)
	if err != nil {
		return nil, nil, err
	}

	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	for key, values := range s.headers {
		if req.Headers.Get(key) == "" {
			for _, value := range values {
				req.Headers.Add(key, value)
			}
		}
	}

	// Credentials are applied once per request, right before it goes out,
	// so refreshing token sources stay current across long fetches.
	if err := s.credentials.Apply(ctx, req); err != nil {
		return nil, nil, err
	}

	resp, err := s.executor.Execute(ctx, func(ctx context.Context) (*httpx.Response, error) {
		return s.transport.RoundTrip(ctx, req)
	})
	if err != nil {
		return nil, nil, err
	}

	page, err := decodePage(s.decode, resp)
	if err != nil {
		return nil, nil, err
	}

	next, more := s.strategy.NextCursor(cursor, page, resp)
	if !more {
		next = nil
	}

	s.logger.Debug("page fetched",
		zap.String("url", req.URL),
		zap.Int("rows", len(page.Rows)),
		zap.Bool("has_more", more))

	return page, next, nil
}
