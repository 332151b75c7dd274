package rest

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/paginate"
)

func queryOf(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Query()
}

func TestOffsetStrategyRequest(t *testing.T) {
	s := OffsetStrategy{
		BaseURL:     "https://api.example.com/items",
		OffsetParam: "offset",
		LimitParam:  "limit",
		PageSize:    50,
		StartOffset: 10,
	}

	req, err := s.Request(nil)
	require.NoError(t, err)
	q := queryOf(t, req.URL)
	assert.Equal(t, "10", q.Get("offset"), "bootstrap call starts at the configured offset")
	assert.Equal(t, "50", q.Get("limit"))

	req, err = s.Request(paginate.OffsetCursor{Offset: 60, PageSize: 50})
	require.NoError(t, err)
	q = queryOf(t, req.URL)
	assert.Equal(t, "60", q.Get("offset"))
}

func TestOffsetStrategyNextCursor(t *testing.T) {
	s := OffsetStrategy{PageSize: 2}

	full := &paginate.Page{Rows: []paginate.Row{{"id": 1}, {"id": 2}}}
	next, more := s.NextCursor(paginate.OffsetCursor{Offset: 4, PageSize: 2}, full, nil)
	require.True(t, more)
	assert.Equal(t, paginate.OffsetCursor{Offset: 6, PageSize: 2}, next)

	short := &paginate.Page{Rows: []paginate.Row{{"id": 3}}}
	_, more = s.NextCursor(paginate.OffsetCursor{Offset: 6, PageSize: 2}, short, nil)
	assert.False(t, more, "a short page ends offset pagination")

	empty := &paginate.Page{}
	_, more = s.NextCursor(nil, empty, nil)
	assert.False(t, more)
}

func TestTokenStrategyRequest(t *testing.T) {
	s := TokenStrategy{
		BaseURL:    "https://api.example.com/items",
		TokenParam: "cursor",
		LimitParam: "limit",
		PageSize:   100,
	}

	req, err := s.Request(nil)
	require.NoError(t, err)
	q := queryOf(t, req.URL)
	assert.Empty(t, q.Get("cursor"), "bootstrap call carries no token")
	assert.Equal(t, "100", q.Get("limit"))

	req, err = s.Request(paginate.TokenCursor{Token: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", queryOf(t, req.URL).Get("cursor"))
}

func TestTokenStrategyNextCursor(t *testing.T) {
	s := TokenStrategy{TokenParam: "cursor"}

	withToken := &paginate.Page{Meta: paginate.PageMeta{NextToken: "tok2"}}
	next, more := s.NextCursor(nil, withToken, nil)
	require.True(t, more)
	assert.Equal(t, paginate.TokenCursor{Token: "tok2"}, next)

	_, more = s.NextCursor(nil, &paginate.Page{}, nil)
	assert.False(t, more, "an absent token ends token pagination")
}

func TestLinkStrategyFollowsBodyURL(t *testing.T) {
	s := LinkStrategy{BaseURL: "https://api.example.com/items"}

	req, err := s.Request(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/items", req.URL)

	page := &paginate.Page{Meta: paginate.PageMeta{NextURL: "https://api.example.com/items?page=2"}}
	next, more := s.NextCursor(nil, page, &httpx.Response{})
	require.True(t, more)
	assert.Equal(t, paginate.LinkCursor{NextURL: "https://api.example.com/items?page=2"}, next)

	req, err = s.Request(next)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/items?page=2", req.URL)
}

func TestLinkStrategyFollowsLinkHeader(t *testing.T) {
	s := LinkStrategy{BaseURL: "https://api.example.com/items"}

	headers := http.Header{}
	headers.Set("Link", `<https://api.example.com/items?page=3>; rel="next", <https://api.example.com/items?page=9>; rel="last"`)
	resp := &httpx.Response{Headers: headers}

	next, more := s.NextCursor(nil, &paginate.Page{}, resp)
	require.True(t, more)
	assert.Equal(t, paginate.LinkCursor{NextURL: "https://api.example.com/items?page=3"}, next)
}

func TestLinkStrategyStopsWithoutNextLink(t *testing.T) {
	s := LinkStrategy{BaseURL: "https://api.example.com/items"}

	headers := http.Header{}
	headers.Set("Link", `<https://api.example.com/items?page=1>; rel="prev"`)
	_, more := s.NextCursor(nil, &paginate.Page{}, &httpx.Response{Headers: headers})
	assert.False(t, more)

	_, more = s.NextCursor(nil, &paginate.Page{}, &httpx.Response{})
	assert.False(t, more)
}

func TestNextLinkHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "quoted rel",
			header: `<https://x.test/p2>; rel="next"`,
			want:   "https://x.test/p2",
		},
		{
			name:   "unquoted rel",
			header: `<https://x.test/p2>; rel=next`,
			want:   "https://x.test/p2",
		},
		{
			name:   "next among multiple links",
			header: `<https://x.test/p1>; rel="prev", <https://x.test/p3>; rel="next"`,
			want:   "https://x.test/p3",
		},
		{
			name:   "no next",
			header: `<https://x.test/p1>; rel="prev"`,
			want:   "",
		},
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextLinkHeader(tt.header))
		})
	}
}

func TestGraphQLStrategyRequest(t *testing.T) {
	s := GraphQLStrategy{
		Endpoint: "https://api.example.com/graphql",
		Query:    "query($after: String, $first: Int) { items(after: $after, first: $first) { nodes { id } } }",
		AfterVar: "after",
		FirstVar: "first",
		PageSize: 25,
		Variables: map[string]interface{}{
			"filter": "active",
		},
	}

	req, err := s.Request(nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
	body := string(req.Body)
	assert.Contains(t, body, `"filter":"active"`)
	assert.Contains(t, body, `"first":25`)
	assert.NotContains(t, body, `"after"`, "bootstrap call omits the after variable")

	req, err = s.Request(paginate.TokenCursor{Token: "cur42"})
	require.NoError(t, err)
	assert.Contains(t, string(req.Body), `"after":"cur42"`)
}

func TestGraphQLStrategyNextCursor(t *testing.T) {
	s := GraphQLStrategy{AfterVar: "after"}

	more := &paginate.Page{Meta: paginate.PageMeta{HasMore: true, NextToken: "end9"}}
	next, ok := s.NextCursor(nil, more, nil)
	require.True(t, ok)
	assert.Equal(t, paginate.TokenCursor{Token: "end9"}, next)

	done := &paginate.Page{Meta: paginate.PageMeta{HasMore: false, NextToken: "end9"}}
	_, ok = s.NextCursor(nil, done, nil)
	assert.False(t, ok, "hasNextPage=false ends the fetch even with a cursor present")
}
