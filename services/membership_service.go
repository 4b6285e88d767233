package services

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const maxUserPages = 20

type IMembershipCache interface {
	List(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error)
	Add(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	Remove(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	SearchCandidates(ctx context.Context, roomID domain.RoomID, term string) ([]domain.User, error)
	Invalidate(roomID domain.RoomID)
}

// MembershipCache keeps the member list of each room seen so far.
// Writes go to the server first and only invalidate: the cached list is
// never patched locally.
type MembershipCache struct {
	mu        sync.RWMutex
	members   map[domain.RoomID][]domain.Member
	api       contract.MemberAPI
	users     contract.UserAPI
	directory contract.Refresher
	notifier  contract.Notifier
	log       *slog.Logger
	perPage   int
	group     singleflight.Group

	// generations is bumped by Invalidate, a load started before keeps its result to itself
	generations map[domain.RoomID]uint64
}

func NewMembershipCache(api contract.MemberAPI, users contract.UserAPI, directory contract.Refresher,
	notifier contract.Notifier, log *slog.Logger, perPage int) *MembershipCache {
	if perPage <= 0 {
		perPage = 10
	}
	return &MembershipCache{
		members:     make(map[domain.RoomID][]domain.Member),
		generations: make(map[domain.RoomID]uint64),
		api:         api,
		users:       users,
		directory:   directory,
		notifier:    notifier,
		log:         log,
		perPage:     perPage,
	}
}

// List loads the members of a room. Concurrent loads of one room share a request.
// The shared request outlives a caller giving up on ctx.
// On failure the previously cached list, possibly empty, is returned with the error.
func (c *MembershipCache) List(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	key := roomKey(roomID)
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.RLock()
		gen := c.generations[roomID]
		c.mu.RUnlock()

		page, err := c.api.FetchRoomMembers(fetchCtx, roomID)
		if err != nil {
			c.log.Warn("Failed to load members", "room_id", roomID, "error", err)
			c.notifier.Error("Failed to load members")
			return nil, fmt.Errorf("%w: room %d: %v", errors.ErrMembersLoadFailed, roomID, err)
		}
		c.mu.Lock()
		if c.generations[roomID] == gen {
			c.members[roomID] = page.Items
		} else {
			c.log.Debug("Member list changed while loading, not caching it", "room_id", roomID)
		}
		c.mu.Unlock()
		return page.Items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			previous, _ := c.Cached(roomID)
			return previous, res.Err
		}
		return clone(res.Val.([]domain.Member)), nil
	case <-ctx.Done():
		previous, _ := c.Cached(roomID)
		return previous, ctx.Err()
	}
}

// Cached returns the member list without any network call.
func (c *MembershipCache) Cached(roomID domain.RoomID) ([]domain.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	members, ok := c.members[roomID]
	return clone(members), ok
}

// Invalidate drops the cached list. A load already in flight is not shared
// with later callers and does not repopulate the cache.
func (c *MembershipCache) Invalidate(roomID domain.RoomID) {
	c.mu.Lock()
	delete(c.members, roomID)
	c.generations[roomID]++
	c.mu.Unlock()
	c.group.Forget(roomKey(roomID))
}

// Add rejects a user already present in the member list without calling the server.
func (c *MembershipCache) Add(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	members, err := c.membersOf(ctx, roomID)
	if err != nil {
		return err
	}
	if isMember(members, userID) {
		c.log.Debug(fmt.Sprintf("User %d already in room %d", userID, roomID))
		c.notifier.Info("User is already a member")
		return errors.ErrAlreadyMember
	}

	if err := c.api.AddMember(ctx, roomID, userID); err != nil {
		c.log.Warn("Failed to add member", "room_id", roomID, "user_id", userID, "error", err)
		c.notifier.Error("Failed to add member")
		return fmt.Errorf("%w: add user %d to room %d: %v", errors.ErrMembershipFailed, userID, roomID, err)
	}
	c.notifier.Success("Member added successfully!")
	c.afterWrite(ctx, roomID)
	return nil
}

func (c *MembershipCache) Remove(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if err := c.api.RemoveMember(ctx, roomID, userID); err != nil {
		c.log.Warn("Failed to remove member", "room_id", roomID, "user_id", userID, "error", err)
		c.notifier.Error("Failed to remove member")
		return fmt.Errorf("%w: remove user %d from room %d: %v", errors.ErrMembershipFailed, userID, roomID, err)
	}
	c.notifier.Success("Member removed successfully!")
	c.afterWrite(ctx, roomID)
	return nil
}

// SearchCandidates lists the users who could be added to the room.
// The term matches login or email, case-insensitively. An empty term matches everybody.
func (c *MembershipCache) SearchCandidates(ctx context.Context, roomID domain.RoomID, term string) ([]domain.User, error) {
	members, err := c.membersOf(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var users []domain.User
	for page := domain.DefaultPage; page <= maxUserPages; page++ {
		res, err := c.users.FetchUsers(ctx, page, c.perPage)
		if err != nil {
			c.log.Warn("Failed to search users", "error", err)
			c.notifier.Error("Failed to search users")
			return nil, fmt.Errorf("%w: %v", errors.ErrUserSearchFailed, err)
		}
		users = append(users, res.Items...)
		if !res.HasNext() {
			break
		}
	}

	term = strings.ToLower(strings.TrimSpace(term))
	return lo.Filter(users, func(u domain.User, _ int) bool {
		if isMember(members, u.ID) {
			return false
		}
		return term == "" ||
			strings.Contains(strings.ToLower(u.Login), term) ||
			strings.Contains(strings.ToLower(u.Email), term)
	}), nil
}

func (c *MembershipCache) membersOf(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	if members, ok := c.Cached(roomID); ok {
		return members, nil
	}
	return c.List(ctx, roomID)
}

// afterWrite drops the member list and refreshes the room summaries.
func (c *MembershipCache) afterWrite(ctx context.Context, roomID domain.RoomID) {
	c.Invalidate(roomID)
	if err := c.directory.Refresh(ctx); err != nil {
		c.log.Debug("Directory refresh after membership change failed", "error", err)
	}
}

func roomKey(roomID domain.RoomID) string {
	return strconv.FormatInt(int64(roomID), 10)
}

func isMember(members []domain.Member, userID domain.UserID) bool {
	return lo.ContainsBy(members, func(m domain.Member) bool { return m.UserID == userID })
}

func clone(members []domain.Member) []domain.Member {
	if members == nil {
		return nil
	}
	res := make([]domain.Member, len(members))
	copy(res, members)
	return res
}
