package workers

import (
	"chatlark/contract"
	"chatlark/domain/event"
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultSinkTimeout = 10 * time.Second

// EventFanout hands every pushed event to the registered sinks.
//
// Sinks are called one after the other on the worker goroutine, so the
// side effects of one event complete before the next event is looked at.
// A failing sink is logged and does not prevent the others from running.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.DomainEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
	keep        func(event.DomainEvent) bool
}

func NewEventFanout(log *slog.Logger, events <-chan event.DomainEvent) *EventFanout {
	return &EventFanout{log: log, events: events, sinkTimeout: DefaultSinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) WithSinkTimeout(timeout time.Duration) *EventFanout {
	w.sinkTimeout = timeout
	return w
}

// WithFilter drops events for which keep returns false before any sink sees them.
func (w *EventFanout) WithFilter(keep func(event.DomainEvent) bool) *EventFanout {
	w.keep = keep
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink after the other for each event
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	if w.keep != nil && !w.keep(evt) {
		w.log.Debug(fmt.Sprintf("Dropping %T", evt), "room_id", evt.RoomID())
		return
	}
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Debug(fmt.Sprintf("Sink %T failed", sink), "room_id", evt.RoomID(), "error", err)
		}
		cancel()
	}
}
