package subgraph

import "context"

// PageSize is the hard cap on rows per request enforced by the upstream indexer.
const PageSize = 1000

// Sentinel cursors for id-ordered collections.
const (
	// HexCursorStart sorts before every hex-like id.
	HexCursorStart = "0x00"
)

// Pager walks a collection page by page. A page shorter than PageSize (including an
// empty one) ends the walk, since the upstream exposes no cheap total count.
type Pager[T any, C any] struct {
	PageSize int
	Start    C
	Fetch    func(ctx context.Context, cursor C) ([]T, error)
	// Next derives the cursor for the following page from a full page.
	Next func(cursor C, page []T) C
}

// Walk calls fn for every page in order. Pages are requested strictly one after another.
func (p Pager[T, C]) Walk(ctx context.Context, fn func(page []T) error) error {
	size := p.PageSize
	if size <= 0 {
		size = PageSize
	}

	cursor := p.Start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := p.Fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < size {
			return nil
		}
		cursor = p.Next(cursor, page)
	}
}

// All accumulates every row. On error nothing collected so far is returned.
func (p Pager[T, C]) All(ctx context.Context) ([]T, error) {
	var all []T
	err := p.Walk(ctx, func(page []T) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Count returns the number of rows without keeping them.
func (p Pager[T, C]) Count(ctx context.Context) (int, error) {
	n := 0
	err := p.Walk(ctx, func(page []T) error {
		n += len(page)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SkipPager pages with a numeric offset starting at 0.
func SkipPager[T any](size int, fetch func(ctx context.Context, skip int) ([]T, error)) Pager[T, int] {
	return Pager[T, int]{
		PageSize: size,
		Start:    0,
		Fetch:    fetch,
		Next: func(skip int, page []T) int {
			return skip + len(page)
		},
	}
}

// CursorPager pages by using the id of the last row as the lower bound of the next request.
func CursorPager[T any](size int, start string, idOf func(T) string, fetch func(ctx context.Context, cursor string) ([]T, error)) Pager[T, string] {
	return Pager[T, string]{
		PageSize: size,
		Start:    start,
		Fetch:    fetch,
		Next: func(_ string, page []T) string {
			return idOf(page[len(page)-1])
		},
	}
}
