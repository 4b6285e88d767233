package services

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/errors"
	"chatlark/observability"
	"context"
	"fmt"
	"log/slog"
)

type ISendCoordinator interface {
	Send(ctx context.Context, roomID domain.RoomID, content string, sender *domain.User) error
	Submit(ctx context.Context, roomID domain.RoomID, draft contract.Draft, viewport contract.Viewport, sender *domain.User) error
}

// SendCoordinator writes outgoing messages to the server.
// Nothing is inserted locally: the sender's own view catches up through the
// realtime echo like everybody else's.
type SendCoordinator struct {
	api        contract.MessageAPI
	notifier   contract.Notifier
	log        *slog.Logger
	monitoring *observability.Monitoring
}

func NewSendCoordinator(api contract.MessageAPI, notifier contract.Notifier,
	log *slog.Logger, monitoring *observability.Monitoring) *SendCoordinator {
	return &SendCoordinator{api: api, notifier: notifier, log: log, monitoring: monitoring}
}

// Send is a no-op for blank content.
func (s *SendCoordinator) Send(ctx context.Context, roomID domain.RoomID, content string, sender *domain.User) error {
	_, err := s.send(ctx, roomID, content, sender)
	return err
}

// Submit sends the draft, then clears it and scrolls to the newest message.
// A failed send leaves the draft untouched so it can be retried.
func (s *SendCoordinator) Submit(ctx context.Context, roomID domain.RoomID, draft contract.Draft,
	viewport contract.Viewport, sender *domain.User) error {
	sent, err := s.send(ctx, roomID, draft.Text(), sender)
	if err != nil || !sent {
		return err
	}
	draft.Clear()
	viewport.ScrollToLatest()
	return nil
}

func (s *SendCoordinator) send(ctx context.Context, roomID domain.RoomID, content string, sender *domain.User) (bool, error) {
	// 1. Blank input never reaches the network
	trimmed, err := ValidateSend(content)
	if err != nil {
		return false, nil
	}

	// 2. Nobody to send as
	if sender == nil {
		s.notifier.Error("You must be logged in to send messages")
		return false, errors.ErrNotLoggedIn
	}

	// 3. Round trip, the echo will come back through the realtime channel
	msg, err := s.api.CreateMessage(ctx, roomID, trimmed, sender.ID)
	if err != nil {
		s.monitoring.IncrSendsFailed()
		s.log.Warn("Failed to send message", "room_id", roomID, "error", err)
		s.notifier.Error("Failed to send message")
		return false, fmt.Errorf("%w: room %d: %v", errors.ErrSendFailed, roomID, err)
	}

	s.monitoring.IncrSendsConfirmed()
	s.log.Debug(fmt.Sprintf("Message %d confirmed in room %d", msg.ID, roomID))
	return true, nil
}
