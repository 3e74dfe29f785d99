package store

import (
	"context"
	"sync"
)

// Memory is an in-process Collection backed by a slice. All operations are
// safe for concurrent use.
type Memory[T any] struct {
	mu   sync.RWMutex
	docs []T
}

// NewMemory creates an empty in-memory collection.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{}
}

var _ Collection[struct{}] = (*Memory[struct{}])(nil)

// Find returns every document matching the filter.
func (m *Memory[T]) Find(_ context.Context, filter Filter[T]) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []T
	for _, doc := range m.docs {
		if filter == nil || filter(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// FindOne returns the first document matching the filter.
func (m *Memory[T]) FindOne(_ context.Context, filter Filter[T]) (T, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.docs {
		if filter == nil || filter(doc) {
			return doc, true, nil
		}
	}

	var zero T
	return zero, false, nil
}

// Create inserts a document.
func (m *Memory[T]) Create(_ context.Context, doc T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = append(m.docs, doc)
	return nil
}

// UpdateOne applies the update function to the first matching document.
func (m *Memory[T]) UpdateOne(_ context.Context, filter Filter[T], update func(T) T) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, doc := range m.docs {
		if filter == nil || filter(doc) {
			m.docs[i] = update(doc)
			return m.docs[i], true, nil
		}
	}

	var zero T
	return zero, false, nil
}

// DeleteOne removes the first matching document.
func (m *Memory[T]) DeleteOne(_ context.Context, filter Filter[T]) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, doc := range m.docs {
		if filter == nil || filter(doc) {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteMany removes every matching document.
func (m *Memory[T]) DeleteMany(_ context.Context, filter Filter[T]) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.docs[:0]
	deleted := 0
	for _, doc := range m.docs {
		if filter == nil || filter(doc) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	m.docs = kept
	return deleted, nil
}
