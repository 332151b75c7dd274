package paginate

import "sort"

// missingValue is the type of the Missing sentinel. A dedicated type keeps
// "field absent from this page" distinguishable from an explicit JSON null.
type missingValue struct{}

// Missing marks a canonical field that was absent from the page a row came
// from. It is never substituted for a present-but-null value.
var Missing any = missingValue{}

func (missingValue) String() string { return "<missing>" }

// MarshalJSON renders Missing as null on output; the in-memory distinction
// from an explicit null is not representable in plain JSON.
func (missingValue) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IsMissing reports whether v is the Missing marker.
func IsMissing(v any) bool {
	_, ok := v.(missingValue)
	return ok
}

// Row is one record of a page. Values may be any decoded JSON value, an
// explicit nil for present-but-null fields, or Missing after conforming.
type Row map[string]any

// PageMeta is the continuation side channel riding along with a page. The
// engine never interprets it; producers stash whatever their strategy needs
// to build the next cursor.
type PageMeta struct {
	NextURL    string
	NextOffset int
	NextToken  string
	HasMore    bool
}

// Page is one fetched unit of data: an ordered slice of rows plus metadata.
// A page with zero rows is a legal, non-terminal page; only a nil *Page
// ends the fetch.
type Page struct {
	// Fields lists the page's field names in their canonical order. When
	// empty, the engine derives a sorted field set from the first row,
	// since Go maps carry no order of their own.
	Fields []string
	Rows   []Row
	Meta   PageMeta
}

// fieldNames returns the page's field set, deriving one from the first row
// when the producer did not provide it.
func (p *Page) fieldNames() []string {
	if len(p.Fields) > 0 {
		return p.Fields
	}
	if len(p.Rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.Rows[0]))
	for name := range p.Rows[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the merged outcome of a fetch-all operation. Fields is nil when
// the very first producer call returned no page: a schemaless empty result,
// distinct from an empty result with an established schema.
type Result struct {
	Fields []string
	Rows   []Row
	Pages  int
}

// Empty reports whether the result holds no rows.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}

// HasSchema reports whether a canonical field set was ever established.
func (r *Result) HasSchema() bool {
	return r.Fields != nil
}
