// Package listener provides concurrent listener sets with cancel handles.
package listener

import (
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
)

// Set holds listeners for events of type T. Emit may run concurrently with Add and
// cancellation; a listener cancelled before Emit starts is not called.
type Set[T any] struct {
	next atomic.Uint64
	fns  *hashmap.Map[uint64, func(T)]
}

// New creates an empty Set.
func New[T any]() *Set[T] {
	return &Set[T]{fns: hashmap.New[uint64, func(T)]()}
}

// Add registers fn and returns a func that removes it. The cancel func is idempotent.
func (s *Set[T]) Add(fn func(T)) (cancel func()) {
	id := s.next.Add(1)
	s.fns.Set(id, fn)

	var once sync.Once
	return func() {
		once.Do(func() { s.fns.Del(id) })
	}
}

// Emit calls every registered listener with v.
func (s *Set[T]) Emit(v T) {
	s.fns.Range(func(_ uint64, fn func(T)) bool {
		fn(v)
		return true
	})
}

// Len returns the number of registered listeners.
func (s *Set[T]) Len() int {
	return s.fns.Len()
}

// Clear removes every listener.
func (s *Set[T]) Clear() {
	var ids []uint64
	s.fns.Range(func(id uint64, _ func(T)) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		s.fns.Del(id)
	}
}
