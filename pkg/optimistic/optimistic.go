// Package optimistic implements the snapshot-before-mutate pattern for
// mutations that must feel immediate: capture the pre-mutation value, apply
// the mutation locally, issue the request, and restore the snapshot if the
// request fails. Works for any single mutable field.
// No external dependencies - uses only standard library.
package optimistic

import (
	"context"
)

// Update applies next to *field immediately, then runs commit. On commit
// failure the previous value is restored and the error returned; on success
// the snapshot is dropped.
func Update[T any](ctx context.Context, field *T, next T, commit func(context.Context) error) error {
	prev := *field
	*field = next

	if err := commit(ctx); err != nil {
		*field = prev
		return err
	}

	return nil
}

// Mutate is like Update but takes a mutation function instead of a value,
// for fields that are derived from their current state.
func Mutate[T any](ctx context.Context, field *T, mutate func(T) T, commit func(context.Context) error) error {
	return Update(ctx, field, mutate(*field), commit)
}

// Toggle flips a boolean field optimistically.
func Toggle(ctx context.Context, field *bool, commit func(context.Context) error) error {
	return Update(ctx, field, !*field, commit)
}
