// Package observability aggregates runtime counters for the monitoring
// endpoint. Counters are atomic; the snapshot is built on demand.
package observability

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const recentEventCap = 20

// RecentEventInfo is one broadcast kept in the rolling window shown on the
// monitoring endpoint.
type RecentEventInfo struct {
	Kind      string `json:"kind"`
	ChannelID string `json:"channel_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Stats aggregates every metric exposed to operators.
type Stats struct {
	ConnectionsOpen      int64             `json:"connections_open"`
	ConnectionsTotal     uint64            `json:"connections_total"`
	EventsDelivered      uint64            `json:"events_delivered"`
	EventsDropped        uint64            `json:"events_dropped"`
	ModerationRejections uint64            `json:"moderation_rejections"`
	AllocMemMb           uint64            `json:"alloc_mem_mb"`
	NumGC                uint32            `json:"num_gc"`
	CPUPercent           float64           `json:"cpu_percent"`
	RSSMb                uint64            `json:"rss_mb"`
	RecentEvents         []RecentEventInfo `json:"recent_events"`
}

// Manager is the shared telemetry hub. Hot paths only touch atomics; the
// mutex guards the recent-event window and the sampled process metrics.
type Manager struct {
	mu           sync.RWMutex
	recentEvents []RecentEventInfo
	cpuPercent   float64
	rssMb        uint64

	connectionsOpened    uint64
	connectionsClosed    uint64
	eventsDelivered      uint64
	eventsDropped        uint64
	moderationRejections uint64
}

func NewManager() *Manager {
	return &Manager{recentEvents: make([]RecentEventInfo, 0, recentEventCap)}
}

func (m *Manager) IncrConnectionsOpened() { atomic.AddUint64(&m.connectionsOpened, 1) }

func (m *Manager) IncrConnectionsClosed() { atomic.AddUint64(&m.connectionsClosed, 1) }

func (m *Manager) IncrEventsDelivered() { atomic.AddUint64(&m.eventsDelivered, 1) }

func (m *Manager) IncrEventsDropped() { atomic.AddUint64(&m.eventsDropped, 1) }

func (m *Manager) IncrModerationRejections() { atomic.AddUint64(&m.moderationRejections, 1) }

// RecordEvent appends to the rolling window of recent broadcasts.
func (m *Manager) RecordEvent(kind, channelID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recentEvents) == recentEventCap {
		m.recentEvents = m.recentEvents[1:]
	}
	m.recentEvents = append(m.recentEvents, RecentEventInfo{
		Kind:      kind,
		ChannelID: channelID,
		Timestamp: at.Format(time.RFC3339),
	})
}

// SetProcessMetrics stores the latest sampled CPU and RSS values.
// Called by the telemetry worker, never by request paths.
func (m *Manager) SetProcessMetrics(cpuPercent float64, rssMb uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpuPercent = cpuPercent
	m.rssMb = rssMb
}

func (m *Manager) Snapshot() Stats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	opened := atomic.LoadUint64(&m.connectionsOpened)
	closed := atomic.LoadUint64(&m.connectionsClosed)

	m.mu.RLock()
	defer m.mu.RUnlock()
	recent := make([]RecentEventInfo, len(m.recentEvents))
	copy(recent, m.recentEvents)

	return Stats{
		ConnectionsOpen:      int64(opened) - int64(closed),
		ConnectionsTotal:     opened,
		EventsDelivered:      atomic.LoadUint64(&m.eventsDelivered),
		EventsDropped:        atomic.LoadUint64(&m.eventsDropped),
		ModerationRejections: atomic.LoadUint64(&m.moderationRejections),
		AllocMemMb:           ms.Alloc / 1024 / 1024,
		NumGC:                ms.NumGC,
		CPUPercent:           m.cpuPercent,
		RSSMb:                m.rssMb,
		RecentEvents:         recent,
	}
}
