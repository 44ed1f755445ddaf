package eventsourcing

import (
	"context"
	"io"
)

// Iterator is a lazy, pull-based iterator. The producing function signals the
// end of the sequence with io.EOF; any other error stops iteration and is
// reported by Err.
type Iterator[T any] struct {
	nextFunc func(ctx context.Context) (T, error)
	current  T
	err      error
	done     bool
}

// NewIteratorFunc creates an Iterator from a function that produces the next
// item. The function should return io.EOF when the sequence is exhausted.
func NewIteratorFunc[T any](nextFunc func(ctx context.Context) (T, error)) *Iterator[T] {
	return &Iterator[T]{nextFunc: nextFunc}
}

// NewSliceIterator creates an Iterator over an in-memory slice.
func NewSliceIterator[T any](items []T) *Iterator[T] {
	index := 0
	return NewIteratorFunc(func(ctx context.Context) (T, error) {
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if index >= len(items) {
			return zero, io.EOF
		}
		item := items[index]
		index++
		return item, nil
	})
}

// Next advances the iterator. Returns false when the sequence is exhausted or
// an error occurred.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	item, err := it.nextFunc(ctx)
	if err != nil {
		if err == io.EOF {
			it.done = true
		} else {
			it.err = err
		}
		return false
	}
	it.current = item
	return true
}

// Value returns the current item.
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err returns the last error encountered during iteration, excluding io.EOF.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All consumes the iterator and returns the remaining items in a slice.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var results []T
	for it.Next(ctx) {
		results = append(results, it.Value())
	}
	return results, it.Err()
}
