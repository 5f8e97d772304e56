package store

import (
	"context"

	"github.com/daykeep/daykeep-api/internal/domain"
)

// TaskStore defines the interface for task list persistence. The task list
// is a flat, ordered collection: there is no relational structure, and the
// store is the sole authority for in-memory state. Implementations mirror
// the list to a durable local blob after every mutation.
// Version: 1.0
type TaskStore interface {
	// List returns a snapshot of the current task list in store order.
	// The returned tasks are deep copies; mutating them does not affect
	// the store.
	List(ctx context.Context) ([]domain.Task, error)

	// Replace swaps the entire task list for the given one, preserving
	// the given order. Reconciliation runs through Transform instead so
	// the merge reads and writes under one lock; Replace serves callers
	// that install a complete list outright, such as test fixtures.
	Replace(ctx context.Context, tasks []domain.Task) error

	// Transform applies fn to the current task list under the store's
	// write lock and replaces the list with fn's result. The whole
	// transformation is atomic with respect to other store operations,
	// which is what allows completing a recurring task and inserting its
	// follow-up to happen as one store update. If fn returns an error the
	// list is left unchanged and the error is returned unwrapped.
	Transform(ctx context.Context, fn func(tasks []domain.Task) ([]domain.Task, error)) error
}
