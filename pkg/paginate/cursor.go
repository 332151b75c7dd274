// Package paginate provides the paged fetch engine: it drives a page
// producer until completion and merges heterogeneous pages into one
// schema-stable result set.
package paginate

import "fmt"

// Cursor carries continuation state between page fetches. Cursors are
// immutable values created once per page transition and discarded after use.
// The engine never inspects a cursor beyond nil-checking; interpretation is
// entirely the producer's business.
type Cursor interface {
	// String renders the cursor for logs and diagnostics.
	String() string
}

// LinkCursor continues at an absolute next-page URL, the style used by APIs
// that return a ready-made link in the body or a Link header.
type LinkCursor struct {
	NextURL string
}

func (c LinkCursor) String() string {
	return fmt.Sprintf("link:%s", c.NextURL)
}

// OffsetCursor continues at a record offset with a fixed page size.
type OffsetCursor struct {
	Offset   int
	PageSize int
}

func (c OffsetCursor) String() string {
	return fmt.Sprintf("offset:%d/%d", c.Offset, c.PageSize)
}

// TokenCursor continues with an opaque continuation token.
type TokenCursor struct {
	Token string
}

func (c TokenCursor) String() string {
	return fmt.Sprintf("token:%s", c.Token)
}
