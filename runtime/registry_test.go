package runtime

import (
	"chatlark/domain"
	"chatlark/domain/event"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func noopHandler(context.Context, event.DomainEvent) {}

func TestRegistry_Subscribe_One_Room_One_Subscription(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriptionID := uuid.NewString()
	roomID := domain.RoomID(1)

	// Given no subscription exists
	req.Zero(registry.Len())
	req.Nil(registry.HandlersForRoom(roomID))

	// When a subscription is attached to a room
	registry.Subscribe(subscriptionID, roomID, noopHandler)

	// Then
	req.Equal(1, registry.Len())
	req.True(registry.IsSubscribed(subscriptionID))
	req.Len(registry.HandlersForRoom(roomID), 1)
}

func TestRegistry_UnSubscribe_Leaves_Nothing_Behind(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriptionID := uuid.NewString()
	roomID := domain.RoomID(1)

	// Given a subscription for a room
	registry.Subscribe(subscriptionID, roomID, noopHandler)

	// When it is removed (twice, the second is a no-op)
	registry.Unsubscribe(subscriptionID)
	registry.Unsubscribe(subscriptionID)

	// Then no handler is left for the room
	req.Zero(registry.Len())
	req.False(registry.IsSubscribed(subscriptionID))
	req.Nil(registry.HandlersForRoom(roomID))
	req.Empty(registry.rooms)
}

func TestRegistry_Rooms_Are_Independent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sub1 := uuid.NewString()
	sub2 := uuid.NewString()

	registry.Subscribe(sub1, 1, noopHandler)
	registry.Subscribe(sub2, 2, noopHandler)

	registry.Unsubscribe(sub1)

	req.Nil(registry.HandlersForRoom(1))
	req.Len(registry.HandlersForRoom(2), 1)
}
