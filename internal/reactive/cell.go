// Package reactive provides an observable mutable cell.
//
// A Cell notifies its watchers synchronously, in registration order, on every
// Set or Update. Watchers run outside the cell's lock, so a watcher may write
// back into the cell it observes; such a write notifies all watchers again
// before the outer call returns.
package reactive

import (
	"sync"
)

// WatchFunc receives the value of the cell after a change.
type WatchFunc[T any] func(value T)

type watcher[T any] struct {
	id int
	fn WatchFunc[T]
}

// Cell holds a value of type T and fans out changes to watchers.
type Cell[T any] struct {
	mu       sync.RWMutex
	value    T
	watchers []watcher[T]
	nextID   int
}

func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// Get returns the current value. For reference types the returned value
// shares memory with the cell.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies watchers.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()

	c.notify()
}

// Update passes a copy of the value to fn, stores the result and notifies
// watchers. fn runs without the lock held, so it may read the cell. The copy
// is shallow: maps and slices inside it still share memory with the cell.
func (c *Cell[T]) Update(fn func(value *T)) {
	value := c.Get()
	fn(&value)
	c.Set(value)
}

type watchOptions struct {
	immediate bool
}

type WatchOption func(*watchOptions)

// Immediate makes Watch invoke the callback once with the current value
// before returning.
func Immediate() WatchOption {
	return func(o *watchOptions) {
		o.immediate = true
	}
}

// Watch registers fn and returns a handle to stop it.
func (c *Cell[T]) Watch(fn WatchFunc[T], opts ...WatchOption) *Subscription {
	var o watchOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.watchers = append(c.watchers, watcher[T]{id: id, fn: fn})
	c.mu.Unlock()

	sub := &Subscription{stop: func() { c.unwatch(id) }}

	if o.immediate {
		fn(c.Get())
	}

	return sub
}

// Watchers returns the number of active watchers.
func (c *Cell[T]) Watchers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.watchers)
}

func (c *Cell[T]) unwatch(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.watchers {
		if w.id == id {
			c.watchers = append(c.watchers[:i:i], c.watchers[i+1:]...)
			return
		}
	}
}

func (c *Cell[T]) notify() {
	c.mu.RLock()
	value := c.value
	watchers := make([]watcher[T], len(c.watchers))
	copy(watchers, c.watchers)
	c.mu.RUnlock()

	for _, w := range watchers {
		w.fn(value)
	}
}

// Subscription detaches a watcher.
type Subscription struct {
	once sync.Once
	stop func()
}

// Stop removes the watcher. Calling it more than once, or on a nil
// Subscription, does nothing.
func (s *Subscription) Stop() {
	if s == nil {
		return
	}
	s.once.Do(s.stop)
}
