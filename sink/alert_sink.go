package sink

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"context"
	"fmt"
)

// AlertSink raises in-app notices for pushed events.
type AlertSink struct {
	notifier contract.Notifier
	session  domain.Session
}

func NewAlertSink(notifier contract.Notifier, session domain.Session) AlertSink {
	return AlertSink{notifier: notifier, session: session}
}

func (a AlertSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.NewMessage:
		if a.session.LoggedIn() && evt.SenderID == a.session.UserID() {
			return nil
		}
		a.notifier.Info(fmt.Sprintf("New message from %s", evt.Message().SenderName()))
	case event.Disconnected:
		a.notifier.Error("Disconnected from chat")
	}
	return nil
}
