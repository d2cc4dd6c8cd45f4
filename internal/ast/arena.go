package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena is a compact slice-backed store handing out 1-based indices,
// so that 0 stays free for the No*ID sentinels.
type Arena[T any] struct {
	data []T
}

// NewArena creates an arena whose storage is preallocated to capHint.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]T, 0, capHint),
	}
}

// Allocate stores the value and returns its 1-based index.
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	idx, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	return idx
}

// Get returns a pointer into the arena, or nil for index 0 / out of range.
func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return &a.data[index-1]
}

// Slice exposes the stored values. Callers must treat it as read-only.
func (a *Arena[T]) Slice() []T {
	return a.data
}

// Len returns the number of allocated values.
func (a *Arena[T]) Len() uint32 {
	return uint32(len(a.data))
}
