package mcpservice

import "strconv"

// defaultPageSize bounds list results for the static containers.
const defaultPageSize = 50

// Page represents a single page of results with an optional cursor for
// fetching the next page. Items is never nil when built with NewPage.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// PageOption configures a Page constructed via NewPage.
type PageOption[T any] func(*Page[T])

// WithNextCursor marks that more results are available.
func WithNextCursor[T any](cursor string) PageOption[T] {
	return func(p *Page[T]) {
		p.NextCursor = &cursor
	}
}

// NewPage constructs a Page; nil items are normalized to an empty slice.
func NewPage[T any](items []T, opts ...PageOption[T]) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	p := Page[T]{Items: items}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// parseCursor decodes the offset cursors produced by paginate. Missing or
// malformed cursors restart from the beginning.
func parseCursor(cursor *string) int {
	if cursor == nil || *cursor == "" {
		return 0
	}
	n, err := strconv.Atoi(*cursor)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// paginate slices a copy of all into one page starting at cursor.
func paginate[T any](all []T, cursor *string, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	start := parseCursor(cursor)
	if start > len(all) {
		start = 0
	}
	end := min(start+pageSize, len(all))
	items := make([]T, end-start)
	copy(items, all[start:end])
	if end < len(all) {
		return NewPage(items, WithNextCursor[T](strconv.Itoa(end)))
	}
	return NewPage(items)
}
