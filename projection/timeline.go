// Package projection builds local timelines from fetched pages.
// Handles ordering, deduplication, and projections.
// Does not fetch anything or interact with the UI directly.
package projection

import (
	"chatlark/domain"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Ascending turns a newest-first page into presentation order (oldest first).
// The input slice is left untouched.
func Ascending(page []domain.Message) []domain.Message {
	out := make([]domain.Message, len(page))
	copy(out, page)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

// Merge folds a refreshed page into the current snapshot.
// Messages are unique by identifier: a refreshed copy replaces the cached one,
// never duplicates it. The result is ordered by creation time ascending.
func Merge(current, refreshed []domain.Message) []domain.Message {
	byID := lo.KeyBy(current, func(m domain.Message) domain.MessageID { return m.ID })
	for _, m := range refreshed {
		byID[m.ID] = m
	}
	return Ascending(lo.Values(byID))
}

// Own recomputes the derived is-own flag against the current user.
func Own(messages []domain.Message, current domain.UserID) []domain.Message {
	return lo.Map(messages, func(m domain.Message, _ int) domain.Message {
		return m.WithOwner(current)
	})
}

// Entry is one rendered line of a room view.
type Entry struct {
	ID        domain.MessageID
	Sender    string
	Avatar    string
	Content   string
	Timestamp string
	Own       bool
}

// Timeline holds the rendered, ordered view of one room.
type Timeline struct {
	Room    domain.RoomID
	Entries []Entry
}

// NewTimeline projects an ordered snapshot into renderable entries.
func NewTimeline(room domain.RoomID, messages []domain.Message, loc *time.Location) Timeline {
	if loc == nil {
		loc = time.Local
	}
	return Timeline{
		Room: room,
		Entries: lo.Map(messages, func(m domain.Message, _ int) Entry {
			return Entry{
				ID:        m.ID,
				Sender:    m.SenderName(),
				Avatar:    domain.AvatarURL(m.SenderName()),
				Content:   m.Content,
				Timestamp: m.CreatedAt.In(loc).Format(time.Kitchen),
				Own:       m.Own,
			}
		}),
	}
}

// Last returns the newest entry, the one a view scrolls to.
func (t Timeline) Last() (Entry, bool) {
	if len(t.Entries) == 0 {
		return Entry{}, false
	}
	return t.Entries[len(t.Entries)-1], true
}
