package ws

import (
	"context"
	"time"

	"livepoll/pkg/logger"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Monitor probes every connection once per interval. A connection gets one
// full interval to answer the ping; one that is still silent at the next
// sweep is reclaimed, so a dead socket occupies its room for at most one
// interval after the miss.
type Monitor struct {
	registry *Registry
	hub      *Hub
	interval time.Duration
	logger   *logger.Logger
}

func NewMonitor(registry *Registry, hub *Hub, interval time.Duration, l *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Monitor{registry: registry, hub: hub, interval: interval, logger: l}
}

// Interval returns the sweep period.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep performs one liveness pass. Reclamation of a stale connection also
// unwinds its room membership, which rebroadcasts the presence count to the
// remaining members.
func (m *Monitor) Sweep() {
	stale, toPing := m.registry.SweepLiveness()

	for _, c := range stale {
		m.hub.Reclaim(c, "missed heartbeat")
	}
	for _, c := range toPing {
		if err := c.Ping(); err != nil {
			m.hub.Reclaim(c, "ping failed")
		}
	}
}
