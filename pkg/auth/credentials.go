// Package auth provides the credential collaborator consulted by producers
// when building page requests. Providers are opaque to the fetch engine;
// token refresh is each provider's own responsibility.
package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
)

// Credentials applies authentication material to an outgoing request.
// Apply is called once per request, immediately before it is issued, so
// providers backed by refreshing token sources always contribute a current
// token.
type Credentials interface {
	Apply(ctx context.Context, req *httpx.Request) error
}

// Anonymous applies no credentials.
type Anonymous struct{}

func (Anonymous) Apply(context.Context, *httpx.Request) error { return nil }

// APIKey sends a static key, either as a header or as a query parameter.
// Exactly one of Header or QueryParam should be set.
type APIKey struct {
	Header     string
	QueryParam string
	Value      string
}

func (k APIKey) Apply(_ context.Context, req *httpx.Request) error {
	switch {
	case k.Header != "":
		setHeader(req, k.Header, k.Value)
		return nil
	case k.QueryParam != "":
		u, err := url.Parse(req.URL)
		if err != nil {
			return fetcherrors.Wrap(err, fetcherrors.KindConfig, "invalid request URL")
		}
		q := u.Query()
		q.Set(k.QueryParam, k.Value)
		u.RawQuery = q.Encode()
		req.URL = u.String()
		return nil
	default:
		return fetcherrors.New(fetcherrors.KindConfig, "api key needs a header or query param name")
	}
}

// BearerToken sends a static bearer token in the Authorization header.
type BearerToken struct {
	Token string
}

func (b BearerToken) Apply(_ context.Context, req *httpx.Request) error {
	setHeader(req, "Authorization", "Bearer "+b.Token)
	return nil
}

// Basic sends an HTTP basic-auth username/password pair.
type Basic struct {
	Username string
	Password string
}

func (b Basic) Apply(_ context.Context, req *httpx.Request) error {
	raw := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	setHeader(req, "Authorization", "Basic "+raw)
	return nil
}

// TokenSource adapts an oauth2.TokenSource. The source owns refresh
// semantics; Apply only asks it for the current token.
type TokenSource struct {
	Source oauth2.TokenSource
}

// NewStaticTokenSource wraps a fixed access token in a TokenSource.
func NewStaticTokenSource(accessToken string) TokenSource {
	return TokenSource{Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})}
}

func (t TokenSource) Apply(_ context.Context, req *httpx.Request) error {
	if t.Source == nil {
		return fetcherrors.New(fetcherrors.KindConfig, "token source is required")
	}
	token, err := t.Source.Token()
	if err != nil {
		return fetcherrors.Wrap(err, fetcherrors.KindTransport, "failed to obtain token")
	}
	typ := token.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	setHeader(req, "Authorization", typ+" "+token.AccessToken)
	return nil
}

func setHeader(req *httpx.Request, key, value string) {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}
	req.Headers.Set(key, value)
}
