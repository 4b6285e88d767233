package observability

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SyncStats is a point-in-time copy of the engine counters.
type SyncStats struct {
	LoadsIssued         uint64        `json:"loads_issued"`
	LoadsFailed         uint64        `json:"loads_failed"`
	StaleDiscarded      uint64        `json:"stale_discarded"`
	PushesReceived      uint64        `json:"pushes_received"`
	PushesIgnored       uint64        `json:"pushes_ignored"`
	SendsConfirmed      uint64        `json:"sends_confirmed"`
	SendsFailed         uint64        `json:"sends_failed"`
	NotificationsShown  uint64        `json:"notifications_shown"`
	NotificationsMuted  uint64        `json:"notifications_muted"`
	Subscriptions       uint64        `json:"subscriptions"`
	RecentEvents        []RecentEvent `json:"recent_events"`
	LastDirectoryUpdate time.Time     `json:"last_directory_update"`
}

type RecentEvent struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

const maxRecentEvents = 20

// Monitoring counts what the synchronization engine does. It is safe for
// concurrent use; counters are atomics, the recent event ring is mutex-guarded.
type Monitoring struct {
	log *slog.Logger
	mu  sync.RWMutex

	loadsIssued        uint64
	loadsFailed        uint64
	staleDiscarded     uint64
	pushesReceived     uint64
	pushesIgnored      uint64
	sendsConfirmed     uint64
	sendsFailed        uint64
	notificationsShown uint64
	notificationsMuted uint64
	subscriptions      uint64

	recent        []RecentEvent
	lastDirectory time.Time
}

func NewMonitoring(log *slog.Logger) *Monitoring {
	return &Monitoring{log: log, recent: make([]RecentEvent, 0, maxRecentEvents)}
}

func (m *Monitoring) IncrLoadsIssued()        { atomic.AddUint64(&m.loadsIssued, 1) }
func (m *Monitoring) IncrLoadsFailed()        { atomic.AddUint64(&m.loadsFailed, 1) }
func (m *Monitoring) IncrStaleDiscarded()     { atomic.AddUint64(&m.staleDiscarded, 1) }
func (m *Monitoring) IncrPushesReceived()     { atomic.AddUint64(&m.pushesReceived, 1) }
func (m *Monitoring) IncrPushesIgnored()      { atomic.AddUint64(&m.pushesIgnored, 1) }
func (m *Monitoring) IncrSendsConfirmed()     { atomic.AddUint64(&m.sendsConfirmed, 1) }
func (m *Monitoring) IncrSendsFailed()        { atomic.AddUint64(&m.sendsFailed, 1) }
func (m *Monitoring) IncrNotificationsShown() { atomic.AddUint64(&m.notificationsShown, 1) }
func (m *Monitoring) IncrNotificationsMuted() { atomic.AddUint64(&m.notificationsMuted, 1) }
func (m *Monitoring) IncrSubscriptions()      { atomic.AddUint64(&m.subscriptions, 1) }

func (m *Monitoring) DirectoryUpdated(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDirectory = at
}

// Record keeps the last few noteworthy events, newest first.
func (m *Monitoring) Record(kind, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evt := RecentEvent{Kind: kind, Detail: detail, Timestamp: time.Now().Format(time.TimeOnly)}
	m.recent = append([]RecentEvent{evt}, m.recent...)
	if len(m.recent) > maxRecentEvents {
		m.recent = m.recent[:maxRecentEvents]
	}
}

func (m *Monitoring) GetLatest() SyncStats {
	m.mu.RLock()
	recent := make([]RecentEvent, len(m.recent))
	copy(recent, m.recent)
	last := m.lastDirectory
	m.mu.RUnlock()

	return SyncStats{
		LoadsIssued:         atomic.LoadUint64(&m.loadsIssued),
		LoadsFailed:         atomic.LoadUint64(&m.loadsFailed),
		StaleDiscarded:      atomic.LoadUint64(&m.staleDiscarded),
		PushesReceived:      atomic.LoadUint64(&m.pushesReceived),
		PushesIgnored:       atomic.LoadUint64(&m.pushesIgnored),
		SendsConfirmed:      atomic.LoadUint64(&m.sendsConfirmed),
		SendsFailed:         atomic.LoadUint64(&m.sendsFailed),
		NotificationsShown:  atomic.LoadUint64(&m.notificationsShown),
		NotificationsMuted:  atomic.LoadUint64(&m.notificationsMuted),
		Subscriptions:       atomic.LoadUint64(&m.subscriptions),
		RecentEvents:        recent,
		LastDirectoryUpdate: last,
	}
}

// LogSummary writes the counters at debug level.
func (m *Monitoring) LogSummary() {
	s := m.GetLatest()
	m.log.Debug("Sync stats",
		"loads", s.LoadsIssued,
		"loads_failed", s.LoadsFailed,
		"stale", s.StaleDiscarded,
		"pushes", s.PushesReceived,
		"sends", s.SendsConfirmed,
		"notified", s.NotificationsShown,
	)
}
