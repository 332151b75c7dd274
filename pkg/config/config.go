// Package config defines the job configuration for a paginated fetch.
// A single Config describes the target API, the pagination style, the
// retry and rate-limit behavior, and where the rows go.
//
// Configuration is organized into logical sections:
//   - Request: base URL, method, headers, request timeout
//   - Auth: credential type and secrets
//   - Pagination: strategy and its parameters
//   - Decode: response format and field paths
//   - Reliability: retry attempts, retryable statuses, rate limiting
//   - Output: destination path, format, compression
//
// Example usage:
//
//	cfg, err := config.LoadFile("connector.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
)

// Duration is a time.Duration that reads "30s"/"2m" style strings from
// YAML and JSON, since the stdlib type only accepts raw nanosecond counts.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.decode(raw)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) decode(raw interface{}) error {
	switch value := raw.(type) {
	case int:
		*d = Duration(value)
		return nil
	case int64:
		*d = Duration(value)
		return nil
	case float64:
		*d = Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fetcherrors.Wrap(err, fetcherrors.KindConfig, "invalid duration")
		}
		*d = Duration(parsed)
		return nil
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "invalid duration value %v", raw)
	}
}

// Pagination strategy names accepted in Pagination.Strategy.
const (
	StrategyOffset  = "offset"
	StrategyToken   = "token"
	StrategyLink    = "link"
	StrategyGraphQL = "graphql"
)

// Auth type names accepted in Auth.Type.
const (
	AuthNone   = "none"
	AuthAPIKey = "api_key"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// Output format names accepted in Output.Format.
const (
	OutputNDJSON = "ndjson"
	OutputCSV    = "csv"
)

// Config is the complete description of one fetch job.
type Config struct {
	// Name identifies the job in logs and metrics.
	Name string `yaml:"name" json:"name"`

	Request     RequestConfig     `yaml:"request" json:"request"`
	Auth        AuthConfig        `yaml:"auth" json:"auth"`
	Pagination  PaginationConfig  `yaml:"pagination" json:"pagination"`
	Decode      DecodeConfig      `yaml:"decode" json:"decode"`
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// RequestConfig describes the HTTP side of the job.
type RequestConfig struct {
	// BaseURL is the first page URL, or the endpoint for offset/token
	// and GraphQL pagination.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Headers are added to every page request.
	Headers map[string]string `yaml:"headers" json:"headers"`
	// Timeout bounds a single request attempt.
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// AuthConfig selects and parameterizes the credential scheme.
type AuthConfig struct {
	// Type is one of none, api_key, bearer, basic.
	Type string `yaml:"type" json:"type"`
	// Header names the header carrying the API key (api_key type).
	Header string `yaml:"header" json:"header"`
	// QueryParam names a query parameter carrying the API key instead
	// of a header.
	QueryParam string `yaml:"query_param" json:"query_param"`
	// Token holds the API key or bearer token. Supports ${ENV_VAR}
	// substitution at load time.
	Token string `yaml:"token" json:"token"`
	// Username and Password for basic auth.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PaginationConfig selects and parameterizes the pagination strategy.
type PaginationConfig struct {
	// Strategy is one of offset, token, link, graphql.
	Strategy string `yaml:"strategy" json:"strategy"`
	// PageSize is the requested rows per page (offset, token, graphql).
	PageSize int `yaml:"page_size" json:"page_size"`
	// OffsetParam and LimitParam name the query parameters for the
	// offset strategy.
	OffsetParam string `yaml:"offset_param" json:"offset_param"`
	LimitParam  string `yaml:"limit_param" json:"limit_param"`
	// StartOffset is where offset pagination begins.
	StartOffset int `yaml:"start_offset" json:"start_offset"`
	// TokenParam names the query parameter for the token strategy.
	TokenParam string `yaml:"token_param" json:"token_param"`
	// Query is the GraphQL document for the graphql strategy.
	Query string `yaml:"query" json:"query"`
	// AfterVar and FirstVar name the GraphQL variables carrying the
	// continuation token and page size.
	AfterVar string `yaml:"after_var" json:"after_var"`
	FirstVar string `yaml:"first_var" json:"first_var"`
	// Variables are extra GraphQL variables sent with every page.
	Variables map[string]interface{} `yaml:"variables" json:"variables"`
	// MaxPages caps how many pages are fetched; zero means unlimited.
	MaxPages int `yaml:"max_pages" json:"max_pages"`
	// MinPageDelay enforces a pause between consecutive page requests.
	MinPageDelay Duration `yaml:"min_page_delay" json:"min_page_delay"`
}

// DecodeConfig describes how rows and continuation metadata are pulled
// out of a response body.
type DecodeConfig struct {
	// Format is json or ndjson.
	Format string `yaml:"format" json:"format"`
	// ItemsPath is the dot-separated path to the row array. Empty means
	// the body itself is the array.
	ItemsPath string `yaml:"items_path" json:"items_path"`
	// NextTokenPath, NextURLPath and HasMorePath locate continuation
	// metadata in the body.
	NextTokenPath string `yaml:"next_token_path" json:"next_token_path"`
	NextURLPath   string `yaml:"next_url_path" json:"next_url_path"`
	HasMorePath   string `yaml:"has_more_path" json:"has_more_path"`
	// Fields fixes the output schema; empty means the first non-empty
	// page decides.
	Fields []string `yaml:"fields" json:"fields"`
}

// ReliabilityConfig controls retries and rate limiting.
type ReliabilityConfig struct {
	// RetryAttempts is the total attempt budget per page request.
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryableStatuses overrides the default retryable status codes.
	RetryableStatuses []int `yaml:"retryable_statuses" json:"retryable_statuses"`
	// RateLimitPerSec limits requests per second; zero means unlimited.
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// RateLimitBurst is the token bucket capacity.
	RateLimitBurst int `yaml:"rate_limit_burst" json:"rate_limit_burst"`
}

// OutputConfig describes where the merged rows are written.
type OutputConfig struct {
	// Path is the destination file; "-" means stdout.
	Path string `yaml:"path" json:"path"`
	// Format is ndjson or csv.
	Format string `yaml:"format" json:"format"`
	// Compression is none, gzip or zstd.
	Compression string `yaml:"compression" json:"compression"`
}

// Default returns a Config with sensible defaults filled in. Callers
// overwrite the fields they care about and then Validate.
func Default() *Config {
	return &Config{
		Request: RequestConfig{
			Timeout: Duration(30 * time.Second),
		},
		Auth: AuthConfig{
			Type: AuthNone,
		},
		Pagination: PaginationConfig{
			Strategy:    StrategyLink,
			PageSize:    100,
			OffsetParam: "offset",
			LimitParam:  "limit",
			TokenParam:  "cursor",
			AfterVar:    "after",
			FirstVar:    "first",
		},
		Decode: DecodeConfig{
			Format: "json",
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:  5,
			RateLimitBurst: 1,
		},
		Output: OutputConfig{
			Path:        "-",
			Format:      OutputNDJSON,
			Compression: "none",
		},
	}
}

// Validate checks the configuration for internal consistency. It returns
// a KindConfig error naming the first offending field.
func (c *Config) Validate() error {
	if c.Request.BaseURL == "" {
		return fetcherrors.New(fetcherrors.KindConfig, "request.base_url is required")
	}
	if c.Request.Timeout < 0 {
		return fetcherrors.New(fetcherrors.KindConfig, "request.timeout must not be negative")
	}

	switch c.Auth.Type {
	case "", AuthNone:
	case AuthAPIKey:
		if c.Auth.Token == "" {
			return fetcherrors.New(fetcherrors.KindConfig, "auth.token is required for api_key auth")
		}
		if c.Auth.Header == "" && c.Auth.QueryParam == "" {
			return fetcherrors.New(fetcherrors.KindConfig, "api_key auth needs auth.header or auth.query_param")
		}
	case AuthBearer:
		if c.Auth.Token == "" {
			return fetcherrors.New(fetcherrors.KindConfig, "auth.token is required for bearer auth")
		}
	case AuthBasic:
		if c.Auth.Username == "" {
			return fetcherrors.New(fetcherrors.KindConfig, "auth.username is required for basic auth")
		}
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "unknown auth.type %q", c.Auth.Type)
	}

	switch c.Pagination.Strategy {
	case StrategyOffset:
		if c.Pagination.PageSize <= 0 {
			return fetcherrors.New(fetcherrors.KindConfig, "pagination.page_size must be positive for offset pagination")
		}
	case StrategyToken, StrategyLink:
	case StrategyGraphQL:
		if c.Pagination.Query == "" {
			return fetcherrors.New(fetcherrors.KindConfig, "pagination.query is required for graphql pagination")
		}
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "unknown pagination.strategy %q", c.Pagination.Strategy)
	}
	if c.Pagination.MaxPages < 0 {
		return fetcherrors.New(fetcherrors.KindConfig, "pagination.max_pages must not be negative")
	}
	if c.Pagination.MinPageDelay < 0 {
		return fetcherrors.New(fetcherrors.KindConfig, "pagination.min_page_delay must not be negative")
	}

	switch c.Decode.Format {
	case "", "json", "ndjson":
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "unknown decode.format %q", c.Decode.Format)
	}

	if c.Reliability.RetryAttempts < 1 {
		return fetcherrors.New(fetcherrors.KindConfig, "reliability.retry_attempts must be at least 1")
	}
	if c.Reliability.RateLimitPerSec < 0 {
		return fetcherrors.New(fetcherrors.KindConfig, "reliability.rate_limit_per_sec must not be negative")
	}

	switch c.Output.Format {
	case "", OutputNDJSON, OutputCSV:
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "unknown output.format %q", c.Output.Format)
	}
	switch c.Output.Compression {
	case "", "none", "gzip", "zstd":
	default:
		return fetcherrors.Newf(fetcherrors.KindConfig, "unknown output.compression %q", c.Output.Compression)
	}

	return nil
}
