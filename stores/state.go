// Package stores caches the last fetched resources per domain and exposes
// actions that call the services and update the cache.
package stores

import (
	"sync"
)

// subscribers notifies listeners of state changes. Listeners are called outside any store lock.
type subscribers[S any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(S)
}

// Subscribe registers fn, called with the new state after every change. It returns the unsubscribe func.
func (s *subscribers[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(S))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers[S]) notify(state S) {
	s.mu.Lock()
	fns := make([]func(S), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Keyed is a cached resource.
type Keyed interface {
	Key() string
}

// State is a cached collection.
type State[T Keyed] struct {
	Items   []T
	Current *T
	Loading bool
	Error   string
}

// Find returns the cached item with key.
func (s State[T]) Find(key string) (T, bool) {
	for _, item := range s.Items {
		if item.Key() == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

type collection[T Keyed] struct {
	subscribers[State[T]]

	mu    sync.RWMutex
	state State[T]
}

// State returns a copy of the current state.
func (c *collection[T]) State() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

func (c *collection[T]) snapshot() State[T] {
	st := c.state
	st.Items = append(make([]T, 0, len(c.state.Items)), c.state.Items...)
	if c.state.Current != nil {
		curr := *c.state.Current
		st.Current = &curr
	}
	return st
}

// update applies fn to the state under lock, then notifies the subscribers.
func (c *collection[T]) update(fn func(st *State[T])) {
	c.mu.Lock()
	fn(&c.state)
	st := c.snapshot()
	c.mu.Unlock()
	c.notify(st)
}

func (c *collection[T]) begin() {
	c.update(func(st *State[T]) {
		st.Loading = true
		st.Error = ""
	})
}

// fail records err and leaves the cache untouched.
func (c *collection[T]) fail(err error) {
	c.update(func(st *State[T]) {
		st.Loading = false
		st.Error = err.Error()
	})
}

func (c *collection[T]) setItems(items []T) {
	c.update(func(st *State[T]) {
		st.Loading = false
		st.Items = append(make([]T, 0, len(items)), items...)
	})
}

func (c *collection[T]) setCurrent(item T) {
	c.update(func(st *State[T]) {
		st.Loading = false
		st.Current = &item
		replace(st, item)
	})
}

// upsert replaces the cached item with the same key, or appends it.
func (c *collection[T]) upsert(item T) {
	c.update(func(st *State[T]) {
		st.Loading = false
		if !replace(st, item) {
			st.Items = append(st.Items, item)
		}
	})
}

func (c *collection[T]) remove(key string) {
	c.update(func(st *State[T]) {
		st.Loading = false
		items := st.Items[:0:0]
		for _, item := range st.Items {
			if item.Key() != key {
				items = append(items, item)
			}
		}
		st.Items = items
		if st.Current != nil && (*st.Current).Key() == key {
			st.Current = nil
		}
	})
}

func replace[T Keyed](st *State[T], item T) bool {
	found := false
	for i := range st.Items {
		if st.Items[i].Key() == item.Key() {
			st.Items[i] = item
			found = true
		}
	}
	if st.Current != nil && (*st.Current).Key() == item.Key() {
		curr := item
		st.Current = &curr
	}
	return found
}
