// Package metrics provides the relay's in-process event counters.
package metrics

import "sync"

// Counter names. These are exposed as the `event` label on the Prometheus
// handler, so renaming one is a breaking change for dashboards.
const (
	ConnectionsTotal      = "connections_total"
	DisconnectsTotal      = "disconnects_total"
	JoinsTotal            = "joins_total"
	LeavesTotal           = "leaves_total"
	RoomsCreatedTotal     = "rooms_created_total"
	RoomsDestroyedTotal   = "rooms_destroyed_total"
	SignalsRelayedTotal   = "signals_relayed_total"
	SignalsDroppedNoDest  = "signals_dropped_unknown_destination"
	SettingsAppliedTotal  = "settings_applied_total"
	SettingsRejectedTotal = "settings_rejected_total"
	MalformedTotal        = "malformed_messages_total"
	RateLimitedTotal      = "rate_limited_total"
	SlowConsumerTotal     = "slow_consumer_disconnects_total"
)

// Metrics is a minimal, concurrency-safe counter registry. The relay exposes
// it in Prometheus' text format rather than pulling in a metrics SDK.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{m: make(map[string]uint64)}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
