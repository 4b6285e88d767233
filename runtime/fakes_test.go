package runtime

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"chatlark/errors"
	"context"
	"sync"
	"time"
)

type emission struct {
	Name string
	Room domain.RoomID
}

// fakeBackend plays the server: it stores messages and pushes new ones to
// every connection joined to the room.
type fakeBackend struct {
	mu       sync.Mutex
	users    map[domain.UserID]string
	messages map[domain.RoomID][]domain.Message
	joined   map[*fakeConn]domain.RoomID
	emitted  []emission
	fetches  map[domain.RoomID]int
	nextID   domain.MessageID
	clock    time.Time
}

func newFakeBackend(users map[domain.UserID]string) *fakeBackend {
	return &fakeBackend{
		users:    users,
		messages: make(map[domain.RoomID][]domain.Message),
		joined:   make(map[*fakeConn]domain.RoomID),
		fetches:  make(map[domain.RoomID]int),
		clock:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (b *fakeBackend) FetchMessages(_ context.Context, roomID domain.RoomID, page, perPage int) (domain.Page[domain.Message], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetches[roomID]++

	all := b.messages[roomID]
	// newest first, like the real endpoint
	desc := make([]domain.Message, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		desc = append(desc, all[i])
	}
	start := (page - 1) * perPage
	if start > len(desc) {
		start = len(desc)
	}
	end := start + perPage
	if end > len(desc) {
		end = len(desc)
	}
	pages := (len(desc) + perPage - 1) / perPage
	return domain.Page[domain.Message]{
		Items:      desc[start:end],
		Pagination: domain.Pagination{Page: page, PerPage: perPage, Total: len(desc), Pages: pages},
	}, nil
}

func (b *fakeBackend) CreateMessage(_ context.Context, roomID domain.RoomID, content string, senderID domain.UserID) (domain.Message, error) {
	b.mu.Lock()
	b.nextID++
	b.clock = b.clock.Add(time.Second)
	login := b.users[senderID]
	msg := domain.Message{
		ID:        b.nextID,
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: domain.At(b.clock),
		Sender:    domain.Sender{ID: senderID, Login: login},
	}
	b.messages[roomID] = append(b.messages[roomID], msg)
	var targets []*fakeConn
	for conn, room := range b.joined {
		if room == roomID {
			targets = append(targets, conn)
		}
	}
	b.mu.Unlock()

	push := event.NewMessage{
		ID:         msg.ID,
		Room:       roomID,
		SenderID:   senderID,
		SenderName: login,
		Content:    content,
		CreatedAt:  msg.CreatedAt.Time,
	}
	for _, conn := range targets {
		conn.push(push)
	}
	return msg, nil
}

func (b *fakeBackend) emit(conn *fakeConn, name string, room domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitted = append(b.emitted, emission{Name: name, Room: room})
	switch name {
	case event.JoinName:
		b.joined[conn] = room
	case event.LeaveName:
		delete(b.joined, conn)
	}
}

func (b *fakeBackend) Emitted() []emission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]emission{}, b.emitted...)
}

func (b *fakeBackend) Fetches(roomID domain.RoomID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches[roomID]
}

// fakeTransport dials connections bound to the backend.
type fakeTransport struct {
	backend *fakeBackend
	dialErr error
	mu      sync.Mutex
	conns   []*fakeConn
}

func (t *fakeTransport) Dial(context.Context) (contract.RealtimeConn, error) {
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	conn := &fakeConn{
		backend: t.backend,
		inbound: make(chan event.DomainEvent, 16),
		closed:  make(chan struct{}),
	}
	t.mu.Lock()
	t.conns = append(t.conns, conn)
	t.mu.Unlock()
	return conn, nil
}

func (t *fakeTransport) Last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[len(t.conns)-1]
}

type fakeConn struct {
	backend *fakeBackend
	inbound chan event.DomainEvent
	closed  chan struct{}
	once    sync.Once
}

func (c *fakeConn) Emit(_ context.Context, name string, room domain.RoomID) error {
	select {
	case <-c.closed:
		return errors.ErrChannelClosed
	default:
	}
	c.backend.emit(c, name, room)
	return nil
}

func (c *fakeConn) Next() (event.DomainEvent, error) {
	select {
	case e := <-c.inbound:
		return e, nil
	case <-c.closed:
		return nil, errors.ErrChannelClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(e event.DomainEvent) {
	select {
	case c.inbound <- e:
	case <-c.closed:
	}
}

// drop simulates the server going away.
func (c *fakeConn) drop() { c.Close() }

// recordingNotifier keeps every notice.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *recordingNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, level+": "+msg)
}

func (n *recordingNotifier) Success(msg string) { n.add("success", msg) }
func (n *recordingNotifier) Info(msg string)    { n.add("info", msg) }
func (n *recordingNotifier) Error(msg string)   { n.add("error", msg) }

func (n *recordingNotifier) Notices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.notices...)
}

type recordingSystem struct {
	mu    sync.Mutex
	shown []contract.Notification
}

func (s *recordingSystem) RequestPermission(context.Context) (contract.Permission, error) {
	return contract.PermissionGranted, nil
}

func (s *recordingSystem) Show(_ context.Context, n contract.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
	return nil
}

func (s *recordingSystem) Shown() []contract.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contract.Notification{}, s.shown...)
}

type staticFocus bool

func (f staticFocus) HasFocus() bool { return bool(f) }

type countingViewport struct {
	mu     sync.Mutex
	scroll int
}

func (v *countingViewport) ScrollToLatest() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll++
}
