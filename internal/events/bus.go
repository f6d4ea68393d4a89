// Package events is a small synchronous publish/subscribe bus for
// library-level notifications such as an expired session.
package events

import (
	"context"
	"sync"
)

const (
	Unauthorized    = "unauthorized"
	Authenticated   = "authenticated"
	Unauthenticated = "unauthenticated"
)

type Handler func(ctx context.Context, payload any)

type subscription struct {
	id int
	fn Handler
}

// Bus delivers events to handlers on the emitting goroutine, in
// subscription order. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for name and returns a func that removes it.
// Calling the returned func more than once is a no-op.
func (b *Bus) Subscribe(name string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = map[string][]subscription{}
	}
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(name, id) })
	}
}

func (b *Bus) unsubscribe(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Emit calls every handler subscribed to name. Handlers may subscribe or
// unsubscribe while being called; the change applies to the next Emit.
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ctx, payload)
	}
}

// Len returns the number of handlers subscribed to name.
func (b *Bus) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
