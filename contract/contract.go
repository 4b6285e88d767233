//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chatlark/domain"
	"chatlark/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker lifecycle events.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Refresher is implemented by caches polled in the background.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// REST collaborators, split by resource so each consumer only sees what it calls.

type IdentityAPI interface {
	FetchUserByIdentity(ctx context.Context, identity string) (domain.User, error)
}

type UserAPI interface {
	FetchUsers(ctx context.Context, page, perPage int) (domain.Page[domain.User], error)
}

type RoomAPI interface {
	FetchChatRooms(ctx context.Context, userID domain.UserID, page, perPage int) (domain.Page[domain.Room], error)
	CreateChatRoom(ctx context.Context, name string, roomType domain.RoomType) (domain.Room, error)
}

type MessageAPI interface {
	FetchMessages(ctx context.Context, roomID domain.RoomID, page, perPage int) (domain.Page[domain.Message], error)
	CreateMessage(ctx context.Context, roomID domain.RoomID, content string, senderID domain.UserID) (domain.Message, error)
}

type MemberAPI interface {
	FetchRoomMembers(ctx context.Context, roomID domain.RoomID) (domain.Page[domain.Member], error)
	AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
}

// Realtime collaborators.

type RealtimeTransport interface {
	// Dial returns once the transport acknowledged the connection.
	Dial(ctx context.Context) (RealtimeConn, error)
}

type RealtimeConn interface {
	Emit(ctx context.Context, name string, room domain.RoomID) error
	// Next blocks until a frame arrives. It fails once Close was called.
	Next() (event.DomainEvent, error)
	Close() error
}

// UI collaborators.

// Notifier surfaces non-blocking notices (toasts).
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

type Notification struct {
	Title string
	Body  string
	Icon  string
}

// SystemNotifier shows out-of-band notifications (desktop, terminal bell...).
type SystemNotifier interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification) error
}

type FocusState interface {
	HasFocus() bool
}

type Viewport interface {
	ScrollToLatest()
}

// Draft is the pending compose input.
type Draft interface {
	Text() string
	Clear()
}

// MessageSender submits the compose input of a room.
type MessageSender interface {
	Submit(ctx context.Context, roomID domain.RoomID, draft Draft, viewport Viewport, sender *domain.User) error
}

type PermissionRequester interface {
	RequestPermission(ctx context.Context) Permission
}

// Invalidator is implemented by whoever owns the per-room message streams.
type Invalidator interface {
	Invalidate(ctx context.Context, roomID domain.RoomID) error
}

// Evaluator decides whether a pushed message becomes a system notification.
type Evaluator interface {
	Evaluate(ctx context.Context, msg domain.Message, user *domain.User, hasFocus bool) Decision
}

type Decision string

const (
	Dispatched           Decision = "dispatched"
	SuppressedSelf       Decision = "suppressed_self"
	SuppressedFocus      Decision = "suppressed_focus"
	SuppressedPermission Decision = "suppressed_permission"
	DispatchFailed       Decision = "dispatch_failed"
)
