// Package events provides a small typed publish/subscribe registry.
package events

import "sync"

// Emitter delivers values to every current subscriber. Firing with no
// subscribers is a no-op and late subscribers never see earlier values.
// The zero value is ready to use.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
	order  []int
}

// Subscribe registers fn and returns a function that removes it.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[int]func(T))
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.order = append(e.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
			for i, v := range e.order {
				if v == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Fire calls every subscriber in registration order. Subscribers run outside
// the lock so they may subscribe or unsubscribe themselves.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.order))
	for _, id := range e.order {
		fns = append(fns, e.subs[id])
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of current subscribers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}
