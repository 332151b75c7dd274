package auth

import (
	"context"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
)

func TestAnonymousLeavesRequestUntouched(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com/items"}

	require.NoError(t, Anonymous{}.Apply(context.Background(), req))
	assert.Nil(t, req.Headers)
	assert.Equal(t, "https://api.example.com/items", req.URL)
}

func TestAPIKeyHeader(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com/items"}
	creds := APIKey{Header: "X-Api-Key", Value: "k123"}

	require.NoError(t, creds.Apply(context.Background(), req))
	assert.Equal(t, "k123", req.Headers.Get("X-Api-Key"))
}

func TestAPIKeyQueryParam(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com/items?limit=10"}
	creds := APIKey{QueryParam: "api_key", Value: "k123"}

	require.NoError(t, creds.Apply(context.Background(), req))

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "k123", u.Query().Get("api_key"))
	assert.Equal(t, "10", u.Query().Get("limit"), "existing query parameters survive")
}

func TestAPIKeyNeedsTarget(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com"}
	err := APIKey{Value: "k123"}.Apply(context.Background(), req)

	require.Error(t, err)
	assert.True(t, fetcherrors.IsKind(err, fetcherrors.KindConfig))
}

func TestBearerToken(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com"}

	require.NoError(t, BearerToken{Token: "tok"}.Apply(context.Background(), req))
	assert.Equal(t, "Bearer tok", req.Headers.Get("Authorization"))
}

func TestBasic(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com"}

	require.NoError(t, Basic{Username: "alice", Password: "s3cret"}.Apply(context.Background(), req))

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	assert.Equal(t, want, req.Headers.Get("Authorization"))
}

func TestTokenSource(t *testing.T) {
	req := &httpx.Request{URL: "https://api.example.com"}
	creds := NewStaticTokenSource("static-token")

	require.NoError(t, creds.Apply(context.Background(), req))
	assert.Equal(t, "Bearer static-token", req.Headers.Get("Authorization"))
}

func TestTokenSourceRequiresSource(t *testing.T) {
	err := TokenSource{}.Apply(context.Background(), &httpx.Request{})
	require.Error(t, err)
	assert.True(t, fetcherrors.IsKind(err, fetcherrors.KindConfig))
}
