package runtime

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"chatlark/errors"
	"chatlark/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type ChannelState string

const (
	StateDisconnected ChannelState = "disconnected"
	StateConnecting   ChannelState = "connecting"
	StateJoined       ChannelState = "joined"
	StateLeaving      ChannelState = "leaving"
)

const leaveTimeout = 2 * time.Second

// RealtimeChannel holds at most one room subscription at a time.
// Joining a room first closes the previous subscription.
type RealtimeChannel struct {
	mu         sync.Mutex
	transport  contract.RealtimeTransport
	registry   *Registry
	log        *slog.Logger
	monitoring *observability.Monitoring
	state      ChannelState
	current    *Subscription
}

func NewRealtimeChannel(transport contract.RealtimeTransport, registry *Registry,
	log *slog.Logger, monitoring *observability.Monitoring) *RealtimeChannel {
	return &RealtimeChannel{
		transport:  transport,
		registry:   registry,
		log:        log,
		monitoring: monitoring,
		state:      StateDisconnected,
	}
}

func (c *RealtimeChannel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the live subscription, nil when disconnected.
func (c *RealtimeChannel) Current() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Join connects, announces the room and starts delivering its pushes to handler.
// The returned subscription must be closed by the caller.
func (c *RealtimeChannel) Join(ctx context.Context, roomID domain.RoomID, handler Handler) (*Subscription, error) {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	c.setState(StateConnecting)
	conn, err := c.transport.Dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		c.log.Warn("Realtime connection failed", "room_id", roomID, "error", err)
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &Subscription{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		channel: c,
		conn:    conn,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.registry.Subscribe(sub.ID, roomID, handler)

	if err := conn.Emit(ctx, event.JoinName, roomID); err != nil {
		c.registry.Unsubscribe(sub.ID)
		cancel()
		_ = conn.Close()
		c.setState(StateDisconnected)
		return nil, fmt.Errorf("%w: join room %d: %v", errors.ErrChannelEmitFailure, roomID, err)
	}

	c.mu.Lock()
	c.current = sub
	c.state = StateJoined
	c.mu.Unlock()

	c.monitoring.IncrSubscriptions()
	c.monitoring.Record("join", fmt.Sprintf("room %d", roomID))
	c.log.Info(fmt.Sprintf("Joined room %d", roomID), "subscription_id", sub.ID)

	go sub.readLoop(loopCtx)
	return sub, nil
}

// Close leaves the current room if any.
func (c *RealtimeChannel) Close() {
	c.mu.Lock()
	sub := c.current
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (c *RealtimeChannel) setState(state ChannelState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// transition only applies when sub is still the live subscription.
func (c *RealtimeChannel) transition(sub *Subscription, state ChannelState, release bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != sub {
		return
	}
	c.state = state
	if release {
		c.current = nil
	}
}

// deliver hands an event to every handler still registered for its room.
func (c *RealtimeChannel) deliver(ctx context.Context, roomID domain.RoomID, e event.DomainEvent) bool {
	handlers := c.registry.HandlersForRoom(roomID)
	for _, h := range handlers {
		h(ctx, e)
	}
	return len(handlers) > 0
}

// Subscription is the scoped handle returned by Join.
type Subscription struct {
	ID     string
	RoomID domain.RoomID

	channel *RealtimeChannel
	conn    contract.RealtimeConn
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	closing atomic.Bool
}

func (s *Subscription) readLoop(ctx context.Context) {
	defer close(s.done)
	log := s.channel.log.With("room_id", s.RoomID, "subscription_id", s.ID)

	for {
		evt, err := s.conn.Next()
		if err != nil {
			if s.closing.Load() {
				return
			}
			log.Warn("Realtime transport dropped", "error", err)
			s.channel.transition(s, StateDisconnected, false)
			s.channel.monitoring.Record("disconnected", fmt.Sprintf("room %d", s.RoomID))
			s.channel.deliver(ctx, s.RoomID, event.Disconnected{Room: s.RoomID, Cause: err})
			return
		}

		switch e := evt.(type) {
		case event.Status:
			log.Debug("Status frame", "msg", e.Msg)
		case event.NewMessage:
			s.channel.monitoring.IncrPushesReceived()
			// A push without chat_room_id belongs to the room this connection joined
			if e.Room == 0 {
				e.Room = s.RoomID
			}
			if !s.channel.deliver(ctx, e.RoomID(), e) {
				s.channel.monitoring.IncrPushesIgnored()
				log.Debug("Push for a room without subscription", "push_room_id", e.RoomID())
			}
		default:
			log.Debug(fmt.Sprintf("Ignoring realtime event %T", evt))
		}
	}
}

// Close emits leave, tears the transport down and waits for the read loop.
// It is safe to call several times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closing.Store(true)
		s.channel.transition(s, StateLeaving, false)
		s.channel.registry.Unsubscribe(s.ID)

		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		if err := s.conn.Emit(ctx, event.LeaveName, s.RoomID); err != nil {
			s.channel.log.Debug("Leave intent not delivered", "room_id", s.RoomID, "error", err)
		}
		cancel()

		if err := s.conn.Close(); err != nil {
			s.channel.log.Debug("Closing realtime transport", "error", err)
		}
		s.cancel()
		<-s.done

		s.channel.transition(s, StateDisconnected, true)
		s.channel.monitoring.Record("leave", fmt.Sprintf("room %d", s.RoomID))
		s.channel.log.Info(fmt.Sprintf("Left room %d", s.RoomID))
	})
}

// Done is closed once the read loop exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }
