// Package runtime handles the mounted chat view: the active room, its message
// stream, its realtime subscription and the supervised workers around them.
// It wires collaborators together without containing presentation code.
package runtime

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"chatlark/errors"
	"chatlark/observability"
	"chatlark/runtime/workers"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// activeRoom groups everything owned by the currently displayed room.
// It is torn down as a whole on room switch.
type activeRoom struct {
	id     domain.RoomID
	ctx    context.Context
	cancel context.CancelFunc
	stream *MessageStream
	sub    *Subscription
}

type Orchestrator struct {
	mu         sync.Mutex
	switchMu   sync.Mutex
	log        *slog.Logger
	supervisor *workers.Supervisor
	channel    *RealtimeChannel
	messages   contract.MessageAPI
	sender     contract.MessageSender
	permission contract.PermissionRequester
	session    domain.Session
	notifier   contract.Notifier
	monitoring *observability.Monitoring
	perPage    int

	sinkTimeout time.Duration
	sinks       []contract.EventSink
	extra       []contract.Worker
	events      chan event.DomainEvent
	active      *activeRoom
	stopped     bool
}

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor, channel *RealtimeChannel,
	messages contract.MessageAPI, sender contract.MessageSender, permission contract.PermissionRequester,
	session domain.Session, notifier contract.Notifier, monitoring *observability.Monitoring,
	perPage, bufferSize int) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		channel:    channel,
		messages:   messages,
		sender:     sender,
		permission: permission,
		session:    session,
		notifier:   notifier,
		monitoring: monitoring,
		perPage:    perPage,
		events:     make(chan event.DomainEvent, bufferSize),

		sinkTimeout: workers.DefaultSinkTimeout,
	}
}

// WithSinkTimeout bounds each sink call of the event fanout.
func (o *Orchestrator) WithSinkTimeout(timeout time.Duration) *Orchestrator {
	if timeout > 0 {
		o.sinkTimeout = timeout
	}
	return o
}

// Add registers sinks consuming every pushed event, in order.
func (o *Orchestrator) Add(sinks ...contract.EventSink) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sinks...)
	return o
}

// AddWorker registers extra workers (directory poller...) run next to the fanout.
func (o *Orchestrator) AddWorker(ws ...contract.Worker) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, ws...)
	return o
}

// Start asks for notification permission once, then runs the supervised
// workers until ctx is cancelled or Stop is called. It blocks.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	permission := o.permission.RequestPermission(ctx)
	o.log.Info(fmt.Sprintf("Notification permission : %s", permission))

	// 2. Critical section (Short Lock)
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return nil
	}
	fanout := workers.NewEventFanout(o.log, o.events).
		Add(o.sinks...).
		WithSinkTimeout(o.sinkTimeout).
		WithFilter(o.isActive)
	o.supervisor.Add(fanout)
	o.supervisor.Add(o.extra...)
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// SelectRoom makes roomID the active room.
// The previous room is left before the new one is joined, its context is
// cancelled and its stream discarded so late results never reach the view.
// ctx bounds the lifetime of the new room.
func (o *Orchestrator) SelectRoom(ctx context.Context, roomID domain.RoomID) error {
	o.switchMu.Lock()
	defer o.switchMu.Unlock()

	o.mu.Lock()
	prev := o.active
	o.active = nil
	o.mu.Unlock()
	o.teardown(prev)

	roomCtx, cancel := context.WithCancel(ctx)
	room := &activeRoom{
		id:     roomID,
		ctx:    roomCtx,
		cancel: cancel,
		stream: NewMessageStream(roomID, o.messages, o.session, o.notifier, o.log, o.monitoring, o.perPage),
	}

	sub, joinErr := o.channel.Join(roomCtx, roomID, o.push)
	if joinErr != nil {
		o.notifier.Error("Failed to connect to chat")
	}
	room.sub = sub

	o.mu.Lock()
	o.active = room
	o.mu.Unlock()
	o.log.Info(fmt.Sprintf("Active room is now %d", roomID))

	loadErr := room.stream.Load(roomCtx, domain.DefaultPage, o.perPage)
	if goerrors.Is(loadErr, errors.ErrStaleResponse) {
		loadErr = nil
	}
	return goerrors.Join(joinErr, loadErr)
}

// ActiveRoom returns false when no room is mounted.
func (o *Orchestrator) ActiveRoom() (domain.RoomID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return 0, false
	}
	return o.active.id, true
}

func (o *Orchestrator) ActiveStream() *MessageStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return nil
	}
	return o.active.stream
}

// Invalidate re-pulls the stream of roomID if, and only if, it is the active room.
func (o *Orchestrator) Invalidate(_ context.Context, roomID domain.RoomID) error {
	o.mu.Lock()
	room := o.active
	o.mu.Unlock()

	if room == nil || room.id != roomID {
		o.log.Debug(fmt.Sprintf("Ignoring invalidation of inactive room %d", roomID))
		return nil
	}
	return room.stream.Invalidate(room.ctx)
}

// Submit sends the draft to the active room.
func (o *Orchestrator) Submit(ctx context.Context, draft contract.Draft, viewport contract.Viewport) error {
	roomID, ok := o.ActiveRoom()
	if !ok {
		return errors.ErrNoActiveRoom
	}
	return o.sender.Submit(ctx, roomID, draft, viewport, o.session.User)
}

// Stop leaves the active room and stops every supervised worker.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")

	o.switchMu.Lock()
	o.mu.Lock()
	room := o.active
	o.active = nil
	o.stopped = true
	o.mu.Unlock()
	o.teardown(room)
	o.switchMu.Unlock()

	o.supervisor.Stop()
}

func (o *Orchestrator) teardown(room *activeRoom) {
	if room == nil {
		return
	}
	// leave {room} goes out before the transport is dropped
	if room.sub != nil {
		room.sub.Close()
	}
	room.cancel()
	room.stream.Close()
	o.log.Debug(fmt.Sprintf("Room %d unmounted", room.id))
}

// isActive reports whether e belongs to the mounted room.
// Events still queued for a room that was left are dropped with it.
func (o *Orchestrator) isActive(e event.DomainEvent) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil && o.active.id == e.RoomID()
}

// push is the subscription handler: events are queued for the fanout worker.
func (o *Orchestrator) push(ctx context.Context, e event.DomainEvent) {
	select {
	case o.events <- e:
	case <-ctx.Done():
		o.log.Debug("Subscription closed, dropping pushed event", "room_id", e.RoomID())
	}
}
