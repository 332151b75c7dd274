// Package httpx provides the HTTP transport collaborator for pagefetch.
//
// The central design point is manual status handling: a completed HTTP
// exchange is always returned as a *Response value, even for non-2xx status
// codes. Only network-level failures (DNS, connection reset, timeout before
// any status arrived) surface as errors. The retry executor depends on this
// split to classify failures before deciding whether to retry.
package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ErrBodyTooLarge reports a response body bigger than ClientConfig.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("http: response body too large")

// Request describes one HTTP exchange to perform. Body may be nil.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the completed exchange: status, headers and the fully read
// body. Returning the body as bytes keeps responses safely repeatable for
// the retry classifier and the page parsers.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Header returns the first value of the named response header.
func (r *Response) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// Transport executes one HTTP exchange in manual status handling mode.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	// Connection settings
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" json:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host" json:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout" json:"idle_conn_timeout"`
	DisableCompression  bool          `yaml:"disable_compression" json:"disable_compression"`

	// HTTP/2
	EnableHTTP2 bool `yaml:"enable_http2" json:"enable_http2"`

	// Timeouts
	DialTimeout           time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout" json:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" json:"response_header_timeout"`
	RequestTimeout        time.Duration `yaml:"request_timeout" json:"request_timeout"`
	KeepAlive             time.Duration `yaml:"keep_alive" json:"keep_alive"`

	// TLS
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`

	// MaxBodyBytes caps how much of a response body is read into memory.
	// Zero means the default cap.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`

	// UserAgent set on requests that do not carry one.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// DefaultClientConfig returns production defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		EnableHTTP2:           true,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		RequestTimeout:        30 * time.Second,
		KeepAlive:             30 * time.Second,
		MaxBodyBytes:          64 << 20, // 64 MiB
		UserAgent:             "pagefetch/1.0",
	}
}

// Client is the default Transport implementation over net/http.
type Client struct {
	config     *ClientConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport
}

// NewClient creates a new HTTP client. A nil config uses defaults.
func NewClient(config *ClientConfig, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config: config,
		logger: logger.With(zap.String("component", "http_client")),
	}

	c.transport = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		DisableCompression:    config.DisableCompression,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(c.transport); err != nil {
			c.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	c.httpClient = &http.Client{
		Transport: c.transport,
		Timeout:   config.RequestTimeout,
	}

	return c
}

// RoundTrip performs the exchange. Non-2xx responses come back as values;
// only transport-level failures return an error.
func (c *Client) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	maxBody := c.config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 << 20
	}
	// Read one byte past the cap so truncation is detectable instead of
	// silently handing a clipped body to the page parser.
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(respBody)) > maxBody {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrBodyTooLarge, maxBody)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", httpResp.StatusCode),
		zap.Int("body_bytes", len(respBody)),
		zap.Duration("duration", time.Since(start)))

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
