package services

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/errors"
	"chatlark/observability"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

// maxDirectoryPages bounds one refresh.
const maxDirectoryPages = 100

type IRoomDirectory interface {
	Refresh(ctx context.Context) error
	Invalidate(ctx context.Context) error
	Rooms() []domain.Room
	Room(id domain.RoomID) (domain.Room, bool)
	CreateRoom(ctx context.Context, name string, roomType domain.RoomType) (domain.Room, error)
}

// RoomDirectory is the list of rooms visible to the current user.
type RoomDirectory struct {
	mu         sync.RWMutex
	rooms      []domain.Room
	refreshed  time.Time
	api        contract.RoomAPI
	session    domain.Session
	notifier   contract.Notifier
	log        *slog.Logger
	monitoring *observability.Monitoring
	perPage    int
	group      singleflight.Group
}

func NewRoomDirectory(api contract.RoomAPI, session domain.Session, notifier contract.Notifier,
	log *slog.Logger, monitoring *observability.Monitoring, perPage int) *RoomDirectory {
	if perPage <= 0 {
		perPage = 10
	}
	return &RoomDirectory{
		api:        api,
		session:    session,
		notifier:   notifier,
		log:        log,
		monitoring: monitoring,
		perPage:    perPage,
	}
}

// Refresh replaces the known rooms with what the server answers.
// Rooms missing upstream are evicted. Concurrent refreshes share one request.
// On failure the previous set is kept.
func (d *RoomDirectory) Refresh(ctx context.Context) error {
	if !d.session.LoggedIn() {
		return errors.ErrNotLoggedIn
	}
	_, err, shared := d.group.Do("rooms", func() (any, error) {
		rooms, err := d.fetchAll(ctx)
		if err != nil {
			d.log.Warn("Failed to load chat rooms", "error", err)
			d.notifier.Error("Failed to load chat rooms")
			return nil, fmt.Errorf("%w: %v", errors.ErrDirectoryFailed, err)
		}

		now := time.Now()
		d.mu.Lock()
		evicted := len(lo.Reject(d.rooms, func(r domain.Room, _ int) bool {
			return lo.ContainsBy(rooms, func(n domain.Room) bool { return n.ID == r.ID })
		}))
		d.rooms = rooms
		d.refreshed = now
		d.mu.Unlock()

		d.monitoring.DirectoryUpdated(now)
		d.log.Debug("Directory refreshed", "rooms", len(rooms), "evicted", evicted)
		return nil, nil
	})
	if shared {
		d.log.Debug("Directory refresh coalesced")
	}
	return err
}

// Invalidate forces a refresh, used after membership changes.
func (d *RoomDirectory) Invalidate(ctx context.Context) error {
	return d.Refresh(ctx)
}

func (d *RoomDirectory) fetchAll(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	for page := domain.DefaultPage; page <= maxDirectoryPages; page++ {
		res, err := d.api.FetchChatRooms(ctx, d.session.UserID(), page, d.perPage)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, res.Items...)
		if !res.HasNext() {
			break
		}
	}
	return lo.UniqBy(rooms, func(r domain.Room) domain.RoomID { return r.ID }), nil
}

func (d *RoomDirectory) Rooms() []domain.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]domain.Room, len(d.rooms))
	copy(res, d.rooms)
	return res
}

func (d *RoomDirectory) Room(id domain.RoomID) (domain.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Find(d.rooms, func(r domain.Room) bool { return r.ID == id })
}

// RefreshedAt is zero until the first successful refresh.
func (d *RoomDirectory) RefreshedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshed
}

// CreateRoom validates locally before anything is sent.
func (d *RoomDirectory) CreateRoom(ctx context.Context, name string, roomType domain.RoomType) (domain.Room, error) {
	trimmed, kind, err := ValidateCreateRoom(name, roomType)
	if err != nil {
		if goerrors.Is(err, errors.ErrEmptyRoomName) {
			d.notifier.Error("Please enter a room name")
		} else {
			d.notifier.Error("Room type must be public or private")
		}
		return domain.Room{}, err
	}
	if !d.session.LoggedIn() {
		d.notifier.Error("User not found")
		return domain.Room{}, errors.ErrNotLoggedIn
	}

	room, err := d.api.CreateChatRoom(ctx, trimmed, kind)
	if err != nil {
		d.log.Warn("Failed to create chat room", "name", trimmed, "error", err)
		d.notifier.Error("Failed to create chat room")
		return domain.Room{}, fmt.Errorf("%w: %v", errors.ErrCreateRoomFailed, err)
	}

	d.notifier.Success("Chat room created successfully")
	if err := d.Refresh(ctx); err != nil {
		d.log.Debug("Refresh after room creation failed", "error", err)
	}
	return room, nil
}
