package rest

import (
	"go.uber.org/zap"

	"github.com/back1ply/pagefetch/pkg/auth"
	"github.com/back1ply/pagefetch/pkg/config"
	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/paginate"
	"github.com/back1ply/pagefetch/pkg/retry"
)

// Build assembles a source and a fetch engine from a job configuration.
// The configuration should already have passed Validate.
func Build(cfg *config.Config, logger *zap.Logger) (*Source, *paginate.Engine, error) {
	strategy, err := buildStrategy(cfg)
	if err != nil {
		return nil, nil, err
	}

	credentials, err := buildCredentials(cfg.Auth)
	if err != nil {
		return nil, nil, err
	}

	clientConfig := httpx.DefaultClientConfig()
	if cfg.Request.Timeout > 0 {
		clientConfig.RequestTimeout = cfg.Request.Timeout.Std()
	}
	if cfg.Request.UserAgent != "" {
		clientConfig.UserAgent = cfg.Request.UserAgent
	}

	policy := retry.NewPolicy(cfg.Reliability.RetryAttempts)
	if len(cfg.Reliability.RetryableStatuses) > 0 {
		policy = policy.WithRetryableStatusCodes(cfg.Reliability.RetryableStatuses...)
	}

	source, err := NewSource(SourceOptions{
		Strategy:    strategy,
		Decode:      buildDecode(cfg.Decode),
		Transport:   httpx.NewClient(clientConfig, logger),
		Credentials: credentials,
		Policy:      policy,
		Headers:     cfg.Request.Headers,
		MaxPages:    cfg.Pagination.MaxPages,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	engineConfig := paginate.EngineConfig{
		MinPageDelay: cfg.Pagination.MinPageDelay.Std(),
	}
	if cfg.Reliability.RateLimitPerSec > 0 {
		burst := cfg.Reliability.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		engineConfig.Limiter = httpx.NewTokenBucketLimiter(cfg.Reliability.RateLimitPerSec, burst)
	}

	return source, paginate.NewEngine(engineConfig, logger), nil
}

func buildStrategy(cfg *config.Config) (Strategy, error) {
	p := cfg.Pagination
	switch p.Strategy {
	case config.StrategyOffset:
		return OffsetStrategy{
			BaseURL:     cfg.Request.BaseURL,
			OffsetParam: p.OffsetParam,
			LimitParam:  p.LimitParam,
			PageSize:    p.PageSize,
			StartOffset: p.StartOffset,
		}, nil
	case config.StrategyToken:
		return TokenStrategy{
			BaseURL:    cfg.Request.BaseURL,
			TokenParam: p.TokenParam,
			LimitParam: p.LimitParam,
			PageSize:   p.PageSize,
		}, nil
	case config.StrategyLink:
		return LinkStrategy{BaseURL: cfg.Request.BaseURL}, nil
	case config.StrategyGraphQL:
		return GraphQLStrategy{
			Endpoint:  cfg.Request.BaseURL,
			Query:     p.Query,
			Variables: p.Variables,
			AfterVar:  p.AfterVar,
			FirstVar:  p.FirstVar,
			PageSize:  p.PageSize,
		}, nil
	default:
		return nil, fetcherrors.Newf(fetcherrors.KindConfig, "unknown pagination strategy %q", p.Strategy)
	}
}

func buildCredentials(cfg config.AuthConfig) (auth.Credentials, error) {
	switch cfg.Type {
	case "", config.AuthNone:
		return auth.Anonymous{}, nil
	case config.AuthAPIKey:
		return auth.APIKey{
			Header:     cfg.Header,
			QueryParam: cfg.QueryParam,
			Value:      cfg.Token,
		}, nil
	case config.AuthBearer:
		return auth.NewStaticTokenSource(cfg.Token), nil
	case config.AuthBasic:
		return auth.Basic{Username: cfg.Username, Password: cfg.Password}, nil
	default:
		return nil, fetcherrors.Newf(fetcherrors.KindConfig, "unknown auth type %q", cfg.Type)
	}
}

func buildDecode(cfg config.DecodeConfig) DecodeConfig {
	format := FormatJSON
	if cfg.Format == "ndjson" {
		format = FormatNDJSON
	}
	return DecodeConfig{
		Format:        format,
		ItemsPath:     cfg.ItemsPath,
		NextTokenPath: cfg.NextTokenPath,
		NextURLPath:   cfg.NextURLPath,
		HasMorePath:   cfg.HasMorePath,
		Fields:        cfg.Fields,
	}
}
