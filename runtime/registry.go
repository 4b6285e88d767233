package runtime

import (
	"chatlark/domain"
	"chatlark/domain/event"
	"context"
	"sync"
)

// Handler receives the events pushed for a subscribed room.
type Handler func(ctx context.Context, e event.DomainEvent)

type Set map[string]Handler

// Registry tracks which handlers are attached to which room.
// A closed subscription must leave no handler behind, which is what the
// realtime channel checks before delivering anything.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]domain.RoomID // subscription -> room
	rooms    map[domain.RoomID]Set    // room -> handlers
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]domain.RoomID),
		rooms:    make(map[domain.RoomID]Set),
	}
}

// HandlersForRoom returns nil if the room has no live subscription.
func (r *Registry) HandlersForRoom(roomID domain.RoomID) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	res := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		res = append(res, h)
	}
	return res
}

// Subscribe attaches a handler for a room, creating the room entry on the fly.
func (r *Registry) Subscribe(subscriptionID string, roomID domain.RoomID, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[subscriptionID] = roomID
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(Set)
	}
	r.rooms[roomID][subscriptionID] = handler
}

// Unsubscribe removes the handler and drops empty rooms so nothing leaks.
func (r *Registry) Unsubscribe(subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.sessions[subscriptionID]
	if !ok {
		return
	}
	delete(r.sessions, subscriptionID)

	if handlers, ok := r.rooms[roomID]; ok {
		delete(handlers, subscriptionID)
		if len(handlers) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

func (r *Registry) IsSubscribed(subscriptionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[subscriptionID]
	return ok
}

// Len is the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
