// Package events carries session notifications to whoever renders the session, such as the
// CLI or a UI layer.
package events

import (
	"sync"
)

type EventType string

const (
	// EventStateChanged follows any change to the authenticated user or credentials.
	EventStateChanged EventType = "state_changed"
	// EventForcedLogout is published when the session is cleared because its credentials
	// could not be renewed.
	EventForcedLogout EventType = "forced_logout"
)

type Event struct {
	Type  EventType
	Cause error // set for EventForcedLogout
}

type Handler func(Event)

// Bus delivers events synchronously, in subscription order, on the publisher's goroutine.
type Bus struct {
	lock     sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
}

type subscription struct {
	id      int
	handler Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]subscription)}
}

// Subscribe registers h for events of type t. The returned func removes it.
func (b *Bus) Subscribe(t EventType, h Handler) (unsubscribe func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler subscribed to e.Type. Handlers may subscribe or publish
// themselves.
func (b *Bus) Publish(e Event) {
	b.lock.RLock()
	subs := append([]subscription(nil), b.handlers[e.Type]...)
	b.lock.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}
