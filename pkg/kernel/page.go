package kernel

// CursorPage is one page of a cursor-driven scan. NextCursor is zero once the
// scan has wrapped around.
type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor uint64 `json:"next_cursor"`
}

func NewCursorPage[T any](items []T, next uint64) CursorPage[T] {
	if items == nil {
		items = []T{}
	}
	return CursorPage[T]{Items: items, NextCursor: next}
}

func (p CursorPage[T]) HasNext() bool {
	return p.NextCursor != 0
}

func (p CursorPage[T]) Empty() bool {
	return len(p.Items) == 0
}
