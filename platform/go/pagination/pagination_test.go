package pagination_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

type row struct {
	ID        int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func createdAt(r row) time.Time { return r.CreatedAt }

func makeRows(n int) []row {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]row, 0, n)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		rows = append(rows, row{ID: i, CreatedAt: ts, UpdatedAt: ts.Add(time.Minute)})
	}
	return rows
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	opts := pagination.Options{}.Normalize()
	require.Equal(t, pagination.DefaultLimit, opts.Limit)
	require.Equal(t, pagination.FieldCreatedAt, opts.Field)
	require.Equal(t, pagination.Desc, opts.Order)
}

func TestNormalizeCoercesNonPositiveLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, pagination.DefaultLimit, pagination.Options{Limit: 0}.Normalize().Limit)
	require.Equal(t, pagination.DefaultLimit, pagination.Options{Limit: -7}.Normalize().Limit)
}

func TestNormalizeClampsOversizedLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, pagination.MaxLimit, pagination.Options{Limit: 500}.Normalize().Limit)
	require.Equal(t, pagination.MaxLimit, pagination.Options{Limit: pagination.MaxLimit + 1}.Normalize().Limit)
	require.Equal(t, pagination.MaxLimit, pagination.Options{Limit: pagination.MaxLimit}.Normalize().Limit)
}

func TestCursorCondition(t *testing.T) {
	t.Parallel()

	desc := pagination.Options{Order: pagination.Desc}
	require.Equal(t, "created_at < $3", desc.CursorCondition(3))

	asc := pagination.Options{Order: pagination.Asc, Field: pagination.FieldUpdatedAt}
	require.Equal(t, "updated_at > $1", asc.CursorCondition(1))
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ORDER BY created_at DESC", pagination.Options{}.OrderBy())
	require.Equal(t, "ORDER BY updated_at ASC",
		pagination.Options{Order: pagination.Asc, Field: pagination.FieldUpdatedAt}.OrderBy())
}

func TestFetchLimitIsLookahead(t *testing.T) {
	t.Parallel()

	require.Equal(t, 6, pagination.Options{Limit: 5}.FetchLimit())
	require.Equal(t, pagination.DefaultLimit+1, pagination.Options{}.FetchLimit())
}

func TestNewPageTruncatesLookaheadRow(t *testing.T) {
	t.Parallel()

	rows := makeRows(6)
	page := pagination.NewPage(rows, pagination.Options{Limit: 5}, createdAt)

	require.Len(t, page.Items, 5)
	require.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	require.Equal(t, rows[4].CreatedAt, *page.NextCursor)
}

func TestNewPageExactlyFullPage(t *testing.T) {
	t.Parallel()

	rows := makeRows(5)
	page := pagination.NewPage(rows, pagination.Options{Limit: 5}, createdAt)

	require.Len(t, page.Items, 5)
	require.False(t, page.HasMore)
	require.Nil(t, page.NextCursor)
}

func TestNewPageEmptyInputYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	page := pagination.NewPage(nil, pagination.Options{Limit: 5}, createdAt)

	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
	require.False(t, page.HasMore)
	require.Nil(t, page.NextCursor)
}

func TestSliceDescendingWalk(t *testing.T) {
	t.Parallel()

	rows := makeRows(12)
	opts := pagination.Options{Limit: 5}

	first := pagination.Slice(rows, opts, createdAt)
	require.Len(t, first.Items, 5)
	require.True(t, first.HasMore)
	require.Equal(t, 11, first.Items[0].ID)
	require.Equal(t, 7, first.Items[4].ID)

	opts.Cursor = first.NextCursor
	second := pagination.Slice(rows, opts, createdAt)
	require.Len(t, second.Items, 5)
	require.True(t, second.HasMore)
	require.Equal(t, 6, second.Items[0].ID)
	require.Equal(t, 2, second.Items[4].ID)

	opts.Cursor = second.NextCursor
	third := pagination.Slice(rows, opts, createdAt)
	require.Len(t, third.Items, 2)
	require.False(t, third.HasMore)
	require.Nil(t, third.NextCursor)
	require.Equal(t, 1, third.Items[0].ID)
	require.Equal(t, 0, third.Items[1].ID)
}

func TestSliceAscendingWalk(t *testing.T) {
	t.Parallel()

	rows := makeRows(7)
	opts := pagination.Options{Limit: 3, Order: pagination.Asc}

	first := pagination.Slice(rows, opts, createdAt)
	require.Equal(t, []int{0, 1, 2}, ids(first.Items))
	require.True(t, first.HasMore)

	opts.Cursor = first.NextCursor
	second := pagination.Slice(rows, opts, createdAt)
	require.Equal(t, []int{3, 4, 5}, ids(second.Items))
	require.True(t, second.HasMore)

	opts.Cursor = second.NextCursor
	third := pagination.Slice(rows, opts, createdAt)
	require.Equal(t, []int{6}, ids(third.Items))
	require.False(t, third.HasMore)
}

func TestSliceStrictInequalityExcludesCursorRow(t *testing.T) {
	t.Parallel()

	rows := makeRows(4)
	cursor := rows[2].CreatedAt

	page := pagination.Slice(rows, pagination.Options{Limit: 10, Cursor: &cursor}, createdAt)

	require.Equal(t, []int{1, 0}, ids(page.Items))
}

// Paginating until has_more is false must yield every row exactly once, in
// strictly monotonic cursor order, for any page size.
func TestSliceCompleteness(t *testing.T) {
	t.Parallel()

	const n = 57
	rows := makeRows(n)

	for _, limit := range []int{1, 3, 5, 10, 57, 100} {
		for _, order := range []pagination.Order{pagination.Asc, pagination.Desc} {
			opts := pagination.Options{Limit: limit, Order: order}
			seen := make(map[int]bool)
			var prev *time.Time

			for {
				page := pagination.Slice(rows, opts, createdAt)
				for _, item := range page.Items {
					require.False(t, seen[item.ID], "limit=%d order=%s duplicate id %d", limit, order, item.ID)
					seen[item.ID] = true
					if prev != nil {
						if order == pagination.Asc {
							require.True(t, item.CreatedAt.After(*prev))
						} else {
							require.True(t, item.CreatedAt.Before(*prev))
						}
					}
					ts := item.CreatedAt
					prev = &ts
				}
				if !page.HasMore {
					require.Nil(t, page.NextCursor)
					break
				}
				require.NotNil(t, page.NextCursor)
				opts.Cursor = page.NextCursor
			}

			require.Len(t, seen, n, "limit=%d order=%s", limit, order)
		}
	}
}

func TestSliceUpdatedAtField(t *testing.T) {
	t.Parallel()

	rows := makeRows(4)
	opts := pagination.Options{Limit: 2, Field: pagination.FieldUpdatedAt}
	at := func(r row) time.Time { return r.UpdatedAt }

	first := pagination.Slice(rows, opts, at)
	require.Equal(t, []int{3, 2}, ids(first.Items))
	require.NotNil(t, first.NextCursor)
	require.Equal(t, rows[2].UpdatedAt, *first.NextCursor)
}

func ids(items []row) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
