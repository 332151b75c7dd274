package rest

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/httpx"
	"github.com/back1ply/pagefetch/pkg/json"
	"github.com/back1ply/pagefetch/pkg/paginate"
)

// Format selects how a response body is parsed into rows.
type Format string

const (
	// FormatJSON parses a JSON document and takes rows from ItemsPath, or
	// from the document itself when it is a bare array.
	FormatJSON Format = "json"
	// FormatNDJSON parses one JSON object per non-empty line.
	FormatNDJSON Format = "ndjson"
)

// DecodeConfig tells the decoder where rows and continuation metadata live
// inside a response document. All paths are dot-separated object paths.
type DecodeConfig struct {
	Format Format

	// ItemsPath locates the row array in a JSON envelope, e.g. "data" or
	// "data.search.nodes". Empty means the document root.
	ItemsPath string

	// NextTokenPath locates an opaque continuation token, e.g.
	// "meta.next_cursor" or "data.search.pageInfo.endCursor".
	NextTokenPath string

	// NextURLPath locates an absolute next-page URL, e.g. "paging.next".
	NextURLPath string

	// HasMorePath locates a boolean has-more flag, e.g.
	// "data.search.pageInfo.hasNextPage". When empty, HasMore follows from
	// the presence of a token or URL.
	HasMorePath string

	// Fields fixes the canonical field order. When empty the engine falls
	// back to sorted field names from the first row.
	Fields []string
}

// decodePage parses a successful response into a page, stashing continuation
// metadata on Page.Meta for the strategy to read back. Parse failures are
// malformed-page errors: retrying a parse failure rarely helps.
func decodePage(cfg DecodeConfig, resp *httpx.Response) (*paginate.Page, error) {
	switch cfg.Format {
	case FormatNDJSON:
		return decodeNDJSON(cfg, resp.Body)
	case FormatJSON, "":
		return decodeJSON(cfg, resp.Body)
	default:
		return nil, fetcherrors.Newf(fetcherrors.KindConfig, "unknown response format %q", cfg.Format)
	}
}

func decodeJSON(cfg DecodeConfig, body []byte) (*paginate.Page, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&doc); err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindMalformedPage,
			"response body is not valid JSON")
	}

	items := doc
	if cfg.ItemsPath != "" {
		found, ok := lookupPath(doc, cfg.ItemsPath)
		if !ok {
			return nil, fetcherrors.Newf(fetcherrors.KindMalformedPage,
				"items path %q not found in response", cfg.ItemsPath)
		}
		items = found
	}

	rows, err := toRows(items)
	if err != nil {
		return nil, err
	}

	page := &paginate.Page{
		Fields: cfg.Fields,
		Rows:   rows,
	}
	applyMetaPaths(cfg, doc, page)
	return page, nil
}

func decodeNDJSON(cfg DecodeConfig, body []byte) (*paginate.Page, error) {
	rows := make([]paginate.Row, 0, 64)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var obj map[string]interface{}
		dec := json.NewDecoder(strings.NewReader(text))
		if err := dec.Decode(&obj); err != nil {
			return nil, fetcherrors.Wrap(err, fetcherrors.KindMalformedPage,
				"invalid NDJSON record").WithDetail("line", line)
		}
		rows = append(rows, paginate.Row(obj))
	}
	if err := scanner.Err(); err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindMalformedPage, "failed to scan NDJSON body")
	}

	return &paginate.Page{Fields: cfg.Fields, Rows: rows}, nil
}

// toRows converts a decoded items value into rows, requiring an array of
// objects.
func toRows(items interface{}) ([]paginate.Row, error) {
	list, ok := items.([]interface{})
	if !ok {
		return nil, fetcherrors.New(fetcherrors.KindMalformedPage,
			"items value is not an array")
	}

	rows := make([]paginate.Row, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fetcherrors.New(fetcherrors.KindMalformedPage,
				"item is not an object").WithDetail("index", i)
		}
		rows = append(rows, paginate.Row(obj))
	}
	return rows, nil
}

// applyMetaPaths extracts continuation metadata from the envelope document.
func applyMetaPaths(cfg DecodeConfig, doc interface{}, page *paginate.Page) {
	if cfg.NextTokenPath != "" {
		if v, ok := lookupPath(doc, cfg.NextTokenPath); ok {
			if s, ok := v.(string); ok {
				page.Meta.NextToken = s
			}
		}
	}
	if cfg.NextURLPath != "" {
		if v, ok := lookupPath(doc, cfg.NextURLPath); ok {
			if s, ok := v.(string); ok {
				page.Meta.NextURL = s
			}
		}
	}
	if cfg.HasMorePath != "" {
		if v, ok := lookupPath(doc, cfg.HasMorePath); ok {
			if b, ok := v.(bool); ok {
				page.Meta.HasMore = b
			}
		}
	} else {
		page.Meta.HasMore = page.Meta.NextToken != "" || page.Meta.NextURL != ""
	}
}

// lookupPath walks a dot-separated path through nested JSON objects.
func lookupPath(doc interface{}, path string) (interface{}, bool) {
	current := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
