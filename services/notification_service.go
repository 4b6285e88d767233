package services

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/observability"
	"context"
	"log/slog"
	"sync"
)

// NotificationDispatcher decides whether a pushed message is worth a system
// notification. Permission is asked once per session and a refusal sticks.
type NotificationDispatcher struct {
	system     contract.SystemNotifier
	log        *slog.Logger
	monitoring *observability.Monitoring

	once       sync.Once
	mu         sync.RWMutex
	permission contract.Permission
}

func NewNotificationDispatcher(system contract.SystemNotifier, log *slog.Logger,
	monitoring *observability.Monitoring) *NotificationDispatcher {
	return &NotificationDispatcher{system: system, log: log, monitoring: monitoring}
}

// RequestPermission only reaches the system notifier on the first call.
func (d *NotificationDispatcher) RequestPermission(ctx context.Context) contract.Permission {
	d.once.Do(func() {
		permission, err := d.system.RequestPermission(ctx)
		if err != nil {
			d.log.Debug("Notification permission request failed", "error", err)
			permission = contract.PermissionDenied
		}
		d.mu.Lock()
		d.permission = permission
		d.mu.Unlock()
	})
	return d.Permission()
}

func (d *NotificationDispatcher) Permission() contract.Permission {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.permission
}

func (d *NotificationDispatcher) Evaluate(ctx context.Context, msg domain.Message, user *domain.User, hasFocus bool) contract.Decision {
	decision := d.evaluate(ctx, msg, user, hasFocus)
	if decision == contract.Dispatched {
		d.monitoring.IncrNotificationsShown()
	} else {
		d.monitoring.IncrNotificationsMuted()
	}
	return decision
}

func (d *NotificationDispatcher) evaluate(ctx context.Context, msg domain.Message, user *domain.User, hasFocus bool) contract.Decision {
	if user != nil && msg.SenderID == user.ID {
		return contract.SuppressedSelf
	}
	if hasFocus {
		return contract.SuppressedFocus
	}
	if d.Permission() != contract.PermissionGranted {
		return contract.SuppressedPermission
	}

	sender := msg.SenderName()
	notification := contract.Notification{
		Title: sender,
		Body:  msg.Content,
		Icon:  domain.AvatarURL(sender),
	}
	if err := d.system.Show(ctx, notification); err != nil {
		d.log.Debug("Failed to show notification", "error", err)
		return contract.DispatchFailed
	}
	return contract.Dispatched
}
