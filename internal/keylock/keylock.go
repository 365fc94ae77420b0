// Package keylock serializes work per string key. The engine uses it to guard
// each (roomTypeID, date) pair so operations on the same day run in arrival
// order while different days proceed in parallel.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Map hands out context-aware mutexes keyed by string. The zero value is not
// usable; call New.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Acquire blocks until the key's lock is held or ctx is done. The context is
// checked again after the lock is obtained, so a caller that timed out while
// waiting never proceeds to apply its effect. The returned function releases
// the lock and must be called exactly once.
func (m *Map) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		if err := ctx.Err(); err != nil {
			m.release(key, e)
			return nil, err
		}
		var once sync.Once
		return func() { once.Do(func() { m.release(key, e) }) }, nil
	case <-ctx.Done():
		m.decref(key, e)
		return nil, ctx.Err()
	}
}

func (m *Map) release(key string, e *entry) {
	<-e.ch
	m.decref(key, e)
}

func (m *Map) decref(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
