package sink

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"context"
	"log/slog"
)

// NotificationSink asks the evaluator whether a pushed message deserves a
// system notification, given the current focus.
type NotificationSink struct {
	evaluator contract.Evaluator
	focus     contract.FocusState
	session   domain.Session
	log       *slog.Logger
}

func NewNotificationSink(evaluator contract.Evaluator, focus contract.FocusState,
	session domain.Session, log *slog.Logger) NotificationSink {
	return NotificationSink{evaluator: evaluator, focus: focus, session: session, log: log}
}

func (n NotificationSink) Consume(ctx context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.NewMessage)
	if !ok {
		return nil
	}
	decision := n.evaluator.Evaluate(ctx, evt.Message(), n.session.User, n.focus.HasFocus())
	n.log.Debug("Notification evaluated", "room_id", evt.RoomID(), "message_id", evt.ID, "decision", decision)
	return nil
}
