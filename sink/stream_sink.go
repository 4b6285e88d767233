package sink

import (
	"chatlark/contract"
	"chatlark/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// StreamSink turns a pushed message into an invalidation of its room stream.
// The pushed payload is never inserted as is: the stream re-pulls the page.
type StreamSink struct {
	invalidator contract.Invalidator
	log         *slog.Logger
}

func NewStreamSink(invalidator contract.Invalidator, log *slog.Logger) StreamSink {
	return StreamSink{invalidator: invalidator, log: log}
}

func (s StreamSink) Consume(ctx context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.NewMessage:
		return s.invalidator.Invalidate(ctx, evt.RoomID())
	default:
		s.log.Debug(fmt.Sprintf("Not invalidating on event : %T", evt))
	}
	return nil
}
