package runtime

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/errors"
	"chatlark/observability"
	"chatlark/projection"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is an immutable view of a stream at one generation.
type Snapshot struct {
	RoomID     domain.RoomID
	Messages   []domain.Message
	Stale      bool
	Generation uint64
	LoadedAt   time.Time
	HasOlder   bool
}

// MessageStream is the per-room ordered message log.
//
// Every load takes a new generation and cancels the request of the previous
// one. Only the response carrying the latest generation may touch the
// snapshot: a stale response is discarded, a failed one keeps the last good
// snapshot in place.
type MessageStream struct {
	mu         sync.Mutex
	roomID     domain.RoomID
	source     contract.MessageAPI
	session    domain.Session
	notifier   contract.Notifier
	log        *slog.Logger
	monitoring *observability.Monitoring
	perPage    int

	generation uint64
	cancel     context.CancelFunc
	closed     bool

	messages   []domain.Message
	stale      bool
	loadedAt   time.Time
	oldestPage int
	hasOlder   bool
	listeners  []func(Snapshot)

	// notifyMu orders listener calls, delivered is the last generation they saw
	notifyMu  sync.Mutex
	delivered uint64
}

func NewMessageStream(roomID domain.RoomID, source contract.MessageAPI, session domain.Session,
	notifier contract.Notifier, log *slog.Logger, monitoring *observability.Monitoring, perPage int) *MessageStream {
	if perPage <= 0 {
		perPage = domain.DefaultMessagePerPage
	}
	return &MessageStream{
		roomID:     roomID,
		source:     source,
		session:    session,
		notifier:   notifier,
		log:        log.With("room_id", roomID),
		monitoring: monitoring,
		perPage:    perPage,
	}
}

func (s *MessageStream) RoomID() domain.RoomID { return s.roomID }

// OnChange registers a listener called after every accepted load.
// Listeners run on the goroutine that completed the load, one snapshot at a
// time and never with an older generation than the previous call. They must
// not load the stream synchronously.
func (s *MessageStream) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load fetches one page and merges it into the snapshot.
// page and perPage default to 1 and the stream page size when not positive.
func (s *MessageStream) Load(ctx context.Context, page, perPage int) error {
	page, perPage = domain.NormalizePage(page, perPage, s.perPage)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrStaleResponse
	}
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		// The previous request can only produce a stale answer now.
		s.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.monitoring.IncrLoadsIssued()
	res, err := s.source.FetchMessages(reqCtx, s.roomID, page, perPage)

	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		s.monitoring.IncrStaleDiscarded()
		s.log.Debug("Discarding stale page", "generation", gen, "page", page)
		return errors.ErrStaleResponse
	}
	s.cancel = nil
	if err != nil {
		s.mu.Unlock()
		s.monitoring.IncrLoadsFailed()
		s.log.Warn("Failed to load messages", "page", page, "error", err)
		s.notifier.Error("Failed to load messages")
		return fmt.Errorf("%w: room %d page %d: %v", errors.ErrLoadFailed, s.roomID, page, err)
	}

	fetched := projection.Own(res.Items, s.session.UserID())
	s.messages = projection.Merge(s.messages, fetched)
	if page == domain.DefaultPage {
		s.stale = false
	}
	s.loadedAt = time.Now()
	if page >= s.oldestPage {
		s.oldestPage = page
		s.hasOlder = res.HasNext()
	}
	snapshot := s.snapshotLocked()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	s.log.Debug("Page merged", "generation", gen, "page", page, "fetched", len(res.Items), "total", len(snapshot.Messages))
	s.notify(snapshot, listeners)
	return nil
}

// notify drops a snapshot that lost the race against a newer one.
func (s *MessageStream) notify(snapshot Snapshot, listeners []func(Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snapshot.Generation < s.delivered {
		s.log.Debug("Skipping outdated snapshot", "generation", snapshot.Generation, "delivered", s.delivered)
		return
	}
	s.delivered = snapshot.Generation
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Invalidate marks the snapshot stale and re-pulls the newest page.
// A load superseded by a newer one is not an error for the caller.
func (s *MessageStream) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()

	err := s.Load(ctx, domain.DefaultPage, s.perPage)
	if goerrors.Is(err, errors.ErrStaleResponse) {
		return nil
	}
	return err
}

// LoadOlder pulls the page following the oldest one loaded so far.
// An invalidation it superseded is issued again once the older page is in.
func (s *MessageStream) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	next := s.oldestPage + 1
	hasOlder := s.hasOlder
	s.mu.Unlock()
	if !hasOlder {
		return nil
	}
	if err := s.Load(ctx, next, s.perPage); err != nil {
		return err
	}
	if s.Snapshot().Stale {
		return s.Invalidate(ctx)
	}
	return nil
}

func (s *MessageStream) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *MessageStream) snapshotLocked() Snapshot {
	messages := make([]domain.Message, len(s.messages))
	copy(messages, s.messages)
	return Snapshot{
		RoomID:     s.roomID,
		Messages:   messages,
		Stale:      s.stale,
		Generation: s.generation,
		LoadedAt:   s.loadedAt,
		HasOlder:   s.hasOlder,
	}
}

// Close cancels any in-flight request. Results arriving afterwards are dropped.
func (s *MessageStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.listeners = nil
}
