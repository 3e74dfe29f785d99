// Package store defines the persistence boundary for the application
// services. Services depend only on the Collection interface, so the
// backing storage can be swapped without touching business logic.
package store

import "context"

// Filter selects documents from a collection.
type Filter[T any] func(T) bool

// Collection is a typed document collection.
type Collection[T any] interface {
	// Find returns every document matching the filter.
	Find(ctx context.Context, filter Filter[T]) ([]T, error)

	// FindOne returns the first document matching the filter. The boolean
	// reports whether a match was found.
	FindOne(ctx context.Context, filter Filter[T]) (T, bool, error)

	// Create inserts a document.
	Create(ctx context.Context, doc T) error

	// UpdateOne applies the update function to the first matching document
	// and stores the result. The boolean reports whether a match was found.
	UpdateOne(ctx context.Context, filter Filter[T], update func(T) T) (T, bool, error)

	// DeleteOne removes the first matching document. The boolean reports
	// whether a match was found.
	DeleteOne(ctx context.Context, filter Filter[T]) (bool, error)

	// DeleteMany removes every matching document and returns the count.
	DeleteMany(ctx context.Context, filter Filter[T]) (int, error)
}
