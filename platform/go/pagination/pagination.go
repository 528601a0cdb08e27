// Package pagination implements the cursor-based pagination used by every
// list operation in the API. A page is a window over a filtered collection,
// ordered by a single timestamp-valued cursor field, bounded by a strict
// inequality against the previous page's cursor.
//
// The cursor is single-field by design: two rows sharing the exact same
// cursor-field value can straddle a page boundary and be skipped or repeated.
// Timestamps are persisted at microsecond precision which keeps such ties
// rare; a composite (timestamp, id) cursor would close the gap at the cost of
// an opaque cursor encoding.
package pagination

import (
	"fmt"
	"sort"
	"time"
)

// DefaultLimit is applied when the caller requests no limit, or a zero or
// negative one.
const DefaultLimit = 50

// MaxLimit is the hard ceiling; larger requested limits are clamped, not
// rejected.
const MaxLimit = 100

// Order is the traversal direction over the cursor field.
type Order string

const (
	// Asc walks the collection oldest-first.
	Asc Order = "asc"
	// Desc walks the collection newest-first. This is the default.
	Desc Order = "desc"
)

// Field names the cursor column. Only the two timestamp columns shared by all
// paginated tables are allowed, so the value can be embedded in SQL directly.
type Field string

const (
	FieldCreatedAt Field = "created_at"
	FieldUpdatedAt Field = "updated_at"
)

// ParseOrder maps a query-string value onto an Order. Unknown values report
// ok=false so the transport layer can fall back to the default.
func ParseOrder(s string) (Order, bool) {
	switch Order(s) {
	case Asc, Desc:
		return Order(s), true
	default:
		return "", false
	}
}

// ParseField maps a query-string value onto a cursor Field.
func ParseField(s string) (Field, bool) {
	switch Field(s) {
	case FieldCreatedAt, FieldUpdatedAt:
		return Field(s), true
	default:
		return "", false
	}
}

// Options captures one page request. The zero value is valid and means
// "first page, default limit, newest-first by creation time".
type Options struct {
	// Limit is the requested page size. Values above MaxLimit are clamped;
	// zero and negative values fall back to DefaultLimit.
	Limit int
	// Cursor is the exclusive boundary of the previous page; nil starts from
	// the beginning of the order.
	Cursor *time.Time
	// Field selects the cursor column; empty means FieldCreatedAt.
	Field Field
	// Order selects the direction; empty means Desc.
	Order Order
}

// Normalize returns a copy with defaults and clamping applied. Every consumer
// of Options normalizes first, so callers may pass the raw request values.
func (o Options) Normalize() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Field == "" {
		o.Field = FieldCreatedAt
	}
	if _, ok := ParseField(string(o.Field)); !ok {
		o.Field = FieldCreatedAt
	}
	if _, ok := ParseOrder(string(o.Order)); !ok {
		o.Order = Desc
	}
	return o
}

// Page is one pagination result. NextCursor is nil whenever HasMore is false.
type Page[T any] struct {
	Items      []T
	NextCursor *time.Time
	HasMore    bool
}

// CursorCondition renders the boundary predicate for SQL stores, referencing
// the cursor value as positional argument argPos. Callers must only append it
// when Cursor is non-nil.
func (o Options) CursorCondition(argPos int) string {
	o = o.Normalize()
	op := "<"
	if o.Order == Asc {
		op = ">"
	}
	return fmt.Sprintf("%s %s $%d", o.Field, op, argPos)
}

// OrderBy renders the ORDER BY clause matching the requested traversal.
func (o Options) OrderBy() string {
	o = o.Normalize()
	dir := "DESC"
	if o.Order == Asc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", o.Field, dir)
}

// FetchLimit is the row count stores must request: one row beyond the
// effective limit, so NewPage can distinguish an exactly-full page from a
// page with successors.
func (o Options) FetchLimit() int {
	return o.Normalize().Limit + 1
}

// NewPage truncates rows fetched with FetchLimit down to the effective limit
// and derives the continuation state. at extracts the cursor-field value of a
// row; it must match the Field the rows were ordered by.
func NewPage[T any](rows []T, opts Options, at func(T) time.Time) Page[T] {
	opts = opts.Normalize()

	page := Page[T]{Items: rows}
	if len(rows) > opts.Limit {
		page.Items = rows[:opts.Limit]
		page.HasMore = true
		last := at(page.Items[len(page.Items)-1])
		page.NextCursor = &last
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}

// Slice runs the full pagination algorithm over an in-memory collection whose
// filter predicate has already been applied: cursor boundary, sort, lookahead
// fetch, truncation. Memory-backed repositories use it so that they paginate
// exactly like the SQL stores.
func Slice[T any](items []T, opts Options, at func(T) time.Time) Page[T] {
	opts = opts.Normalize()

	kept := make([]T, 0, len(items))
	for _, item := range items {
		if opts.Cursor != nil {
			v := at(item)
			if opts.Order == Desc && !v.Before(*opts.Cursor) {
				continue
			}
			if opts.Order == Asc && !v.After(*opts.Cursor) {
				continue
			}
		}
		kept = append(kept, item)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if opts.Order == Asc {
			return at(kept[i]).Before(at(kept[j]))
		}
		return at(kept[i]).After(at(kept[j]))
	})

	if len(kept) > opts.FetchLimit() {
		kept = kept[:opts.FetchLimit()]
	}

	return NewPage(kept, opts, at)
}
