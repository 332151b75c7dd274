package rest

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/json"
	"github.com/back1ply/pagefetch/pkg/paginate"
)

// Strategy builds the request for a cursor and derives the next cursor from
// a fetched page. Strategies are stateless; all continuation state travels
// through cursors and page metadata.
type Strategy interface {
	// Request builds the page request. A nil cursor means the bootstrap
	// call.
	Request(cursor paginate.Cursor) (*httpx.Request, error)

	// NextCursor derives the continuation for the following call. ok is
	// false when the page was the last one.
	NextCursor(cursor paginate.Cursor, page *paginate.Page, resp *httpx.Response) (paginate.Cursor, bool)
}

// OffsetStrategy paginates with offset/limit query parameters. The fetch is
// over when a page comes back shorter than the page size.
type OffsetStrategy struct {
	BaseURL     string
	OffsetParam string
	LimitParam  string
	PageSize    int
	StartOffset int
}

func (s OffsetStrategy) Request(cursor paginate.Cursor) (*httpx.Request, error) {
	offset := s.StartOffset
	if c, ok := cursor.(paginate.OffsetCursor); ok {
		offset = c.Offset
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "invalid base url")
	}
	q := u.Query()
	q.Set(s.OffsetParam, strconv.Itoa(offset))
	q.Set(s.LimitParam, strconv.Itoa(s.PageSize))
	u.RawQuery = q.Encode()

	return &httpx.Request{Method: http.MethodGet, URL: u.String()}, nil
}

func (s OffsetStrategy) NextCursor(cursor paginate.Cursor, page *paginate.Page, _ *httpx.Response) (paginate.Cursor, bool) {
	if len(page.Rows) < s.PageSize {
		return nil, false
	}
	offset := s.StartOffset
	if c, ok := cursor.(paginate.OffsetCursor); ok {
		offset = c.Offset
	}
	return paginate.OffsetCursor{Offset: offset + len(page.Rows), PageSize: s.PageSize}, true
}

// TokenStrategy paginates with an opaque continuation token sent as a query
// parameter. The token for the next page is read from the page metadata the
// decoder extracted.
type TokenStrategy struct {
	BaseURL    string
	TokenParam string
	LimitParam string
	PageSize   int
}

func (s TokenStrategy) Request(cursor paginate.Cursor) (*httpx.Request, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "invalid base url")
	}
	q := u.Query()
	if s.LimitParam != "" && s.PageSize > 0 {
		q.Set(s.LimitParam, strconv.Itoa(s.PageSize))
	}
	if c, ok := cursor.(paginate.TokenCursor); ok {
		q.Set(s.TokenParam, c.Token)
	}
	u.RawQuery = q.Encode()

	return &httpx.Request{Method: http.MethodGet, URL: u.String()}, nil
}

func (s TokenStrategy) NextCursor(_ paginate.Cursor, page *paginate.Page, _ *httpx.Response) (paginate.Cursor, bool) {
	if page.Meta.NextToken == "" {
		return nil, false
	}
	return paginate.TokenCursor{Token: page.Meta.NextToken}, true
}

// LinkStrategy follows a ready-made next-page URL, taken from the page body
// or from an RFC 5988 Link header with rel="next".
type LinkStrategy struct {
	BaseURL string
}

func (s LinkStrategy) Request(cursor paginate.Cursor) (*httpx.Request, error) {
	target := s.BaseURL
	if c, ok := cursor.(paginate.LinkCursor); ok {
		target = c.NextURL
	}
	if _, err := url.Parse(target); err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "invalid page url")
	}
	return &httpx.Request{Method: http.MethodGet, URL: target}, nil
}

func (s LinkStrategy) NextCursor(_ paginate.Cursor, page *paginate.Page, resp *httpx.Response) (paginate.Cursor, bool) {
	next := page.Meta.NextURL
	if next == "" {
		next = nextLinkHeader(resp.Header("Link"))
	}
	if next == "" {
		return nil, false
	}
	return paginate.LinkCursor{NextURL: next}, true
}

// nextLinkHeader extracts the rel="next" target from a Link header value.
func nextLinkHeader(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return target
			}
		}
	}
	return ""
}

// GraphQLStrategy paginates a GraphQL connection: it POSTs the query with an
// "after" variable and follows pageInfo{hasNextPage, endCursor}, which the
// decoder surfaces through page metadata.
type GraphQLStrategy struct {
	Endpoint  string
	Query     string
	Variables map[string]interface{}
	AfterVar  string
	FirstVar  string
	PageSize  int
}

func (s GraphQLStrategy) Request(cursor paginate.Cursor) (*httpx.Request, error) {
	variables := make(map[string]interface{}, len(s.Variables)+2)
	for k, v := range s.Variables {
		variables[k] = v
	}
	if s.FirstVar != "" && s.PageSize > 0 {
		variables[s.FirstVar] = s.PageSize
	}
	if c, ok := cursor.(paginate.TokenCursor); ok {
		variables[s.AfterVar] = c.Token
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":     s.Query,
		"variables": variables,
	})
	if err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to encode graphql request")
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")

	return &httpx.Request{
		Method:  http.MethodPost,
		URL:     s.Endpoint,
		Headers: headers,
		Body:    body,
	}, nil
}

func (s GraphQLStrategy) NextCursor(_ paginate.Cursor, page *paginate.Page, _ *httpx.Response) (paginate.Cursor, bool) {
	if !page.Meta.HasMore || page.Meta.NextToken == "" {
		return nil, false
	}
	return paginate.TokenCursor{Token: page.Meta.NextToken}, true
}
