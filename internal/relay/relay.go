// Package relay implements the room/session state machine of the voice
// signaling relay: which sessions are in which room, which player identity
// each session claims, a per-room settings blob gated to a single
// authoritative sender, and point-to-point forwarding of opaque signaling
// payloads.
//
// The relay never inspects signaling payloads and never touches voice media;
// it only brokers connection setup between peers that share a room code.
package relay

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/voicemesh/signal-relay/internal/metrics"
)

// ErrMalformedSignal is returned by Signal for payloads that fail the shape
// check. The transport must respond by dropping the sender's connection.
var ErrMalformedSignal = errors.New("malformed signal")

// Peer is the relay's handle to one connected client. Implementations must
// not block in Send: the relay calls it while holding its state lock, and a
// slow client must never stall every other connection.
type Peer interface {
	// Send queues one outbound event. Delivery is fire-and-forget.
	Send(msg Message)
	// Kick forcibly closes the underlying connection. The transport is
	// expected to follow up with Disconnect once the connection dies.
	Kick()
}

type sessionState int

const (
	stateConnected sessionState = iota
	stateJoined
)

// session is the relay's bookkeeping for one live connection. Room
// membership is an explicit state value, never inferred from the room code
// being non-empty.
type session struct {
	id    string
	peer  Peer
	state sessionState
	room  string
}

// Relay owns all room, membership, and identity state. A single mutex
// serializes every event: one event runs to completion before the next
// touches the maps, so handlers stay lock-free internally but must also stay
// non-blocking (in-memory work only).
type Relay struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
	dir      *roomDirectory
	ids      *identityRegistry
	settings *settingsSync
}

func New(logger *slog.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	dir := newRoomDirectory()
	return &Relay{
		log:      logger,
		metrics:  m,
		sessions: make(map[string]*session),
		dir:      dir,
		ids:      newIdentityRegistry(),
		settings: &settingsSync{dir: dir},
	}
}

// Connect registers a new session. The transport assigns the session ID and
// guarantees it is unique among live connections.
func (r *Relay) Connect(sessionID string, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = &session{id: sessionID, peer: peer, state: stateConnected}
	r.metrics.Inc(metrics.ConnectionsTotal)
	r.log.Info("session connected", "session", sessionID, "total", len(r.sessions))
}

// Disconnect tears a session down: the identity-removal notice goes out to
// its room (if any) before the session ceases to exist. Graceful closes and
// abrupt transport failures route through here identically.
func (r *Relay) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil {
		return
	}
	r.leaveRoomLocked(s)
	delete(r.sessions, sessionID)
	r.metrics.Inc(metrics.DisconnectsTotal)
	r.log.Info("session disconnected", "session", sessionID, "total", len(r.sessions))
}

// Join puts a session into a room under the given player identity. A session
// already in a room leaves it first. The joiner receives a membership
// snapshot (other sessions' identities) and the room's current settings;
// the rest of the room is told about the newcomer.
func (r *Relay) Join(sessionID, code string, playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil {
		return
	}
	if s.state == stateJoined {
		r.leaveRoomLocked(s)
	}

	others, created := r.dir.Join(code, sessionID)
	if created {
		r.metrics.Inc(metrics.RoomsCreatedTotal)
		r.log.Debug("room created", "room", code)
	}
	r.ids.Set(sessionID, playerID)
	s.state = stateJoined
	s.room = code

	r.broadcastLocked(code, sessionID, joinMsg(sessionID, playerID))

	snapshot := make(map[string]int, len(others))
	for _, other := range others {
		if id, ok := r.ids.Get(other); ok {
			snapshot[other] = id
		}
	}
	s.peer.Send(setIDsMsg(snapshot))
	s.peer.Send(lobbySettingsMsg(copySettings(r.dir.Settings(code))))

	r.metrics.Inc(metrics.JoinsTotal)
	r.log.Debug("session joined room", "session", sessionID, "room", code, "player", playerID)
}

// SetIdentity updates a joined session's player identity and announces the
// change to the rest of its room. Sessions outside a room have no audience
// for the announcement; their update is dropped.
func (r *Relay) SetIdentity(sessionID string, playerID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil || s.state != stateJoined {
		return
	}
	r.ids.Set(sessionID, playerID)
	r.broadcastLocked(s.room, sessionID, setIDMsg(sessionID, playerID))
}

// ReportPlayerCount records a room's in-game roster size. The MENU sentinel
// (no active lobby) is ignored, as are reports from sessions that never
// joined a room. The room code is taken from the report itself: reports and
// joins are not causally ordered, so the code may name a room the directory
// has not seen yet.
func (r *Relay) ReportPlayerCount(sessionID, code string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil || s.state != stateJoined {
		return
	}
	if code == RoomCodeMenu {
		return
	}
	if r.dir.ReportPlayerCount(code, count) {
		r.log.Debug("player count reported", "room", code, "count", count)
	}
}

// SetSetting applies a settings mutation for the session's room. Accepted
// values are echoed to the sender and announced to the rest of the room;
// rejected mutations vanish without a trace (see settingsSync).
func (r *Relay) SetSetting(sessionID, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil || s.state != stateJoined {
		return
	}
	if !r.settings.Apply(s.room, name, value) {
		r.metrics.Inc(metrics.SettingsRejectedTotal)
		return
	}
	s.peer.Send(lobbySettingEchoMsg(name, value))
	r.broadcastLocked(s.room, sessionID, lobbySettingMsg(sessionID, name, value))
	r.metrics.Inc(metrics.SettingsAppliedTotal)
}

// Signal forwards an opaque payload to exactly one destination session. Room
// state is never consulted: both sides already learned each other's session
// IDs through room broadcasts, and that is the only trust the relay needs.
// A signal to a session that no longer exists is absorbed silently.
func (r *Relay) Signal(sessionID, to string, data any) error {
	if to == "" || emptySignalPayload(data) {
		return ErrMalformedSignal
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dest := r.sessions[to]
	if dest == nil {
		r.metrics.Inc(metrics.SignalsDroppedNoDest)
		return nil
	}
	dest.peer.Send(signalMsg(sessionID, data))
	r.metrics.Inc(metrics.SignalsRelayedTotal)
	return nil
}

// Leave removes a session from its room. Leaving while not in a room is a
// no-op.
func (r *Relay) Leave(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil {
		return
	}
	r.leaveRoomLocked(s)
}

// Stats reports the number of open rooms and live connections, for the
// status page. It takes the state lock, so callers must not hold it.
func (r *Relay) Stats() (rooms, connections int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dir.RoomCount(), len(r.sessions)
}

// leaveRoomLocked is the shared leave procedure for explicit leaves,
// disconnects, and defensive re-joins. The identity-removal broadcast only
// goes out when the session ever claimed an identity; membership is always
// released so room bookkeeping cannot leak.
func (r *Relay) leaveRoomLocked(s *session) {
	if s.state != stateJoined {
		return
	}
	code := s.room

	if playerID, ok := r.ids.Get(s.id); ok {
		r.broadcastLocked(code, s.id, deleteIDMsg(s.id, playerID))
		r.ids.Remove(s.id)
	}
	if r.dir.Leave(code, s.id) {
		r.metrics.Inc(metrics.RoomsDestroyedTotal)
		r.log.Debug("room destroyed", "room", code)
	}
	s.state = stateConnected
	s.room = ""
	r.metrics.Inc(metrics.LeavesTotal)
}

// broadcastLocked sends msg to every room member except the originator.
func (r *Relay) broadcastLocked(code, except string, msg Message) {
	for _, member := range r.dir.Members(code) {
		if member == except {
			continue
		}
		if dest := r.sessions[member]; dest != nil {
			dest.peer.Send(msg)
		}
	}
}

// emptySignalPayload reports whether a decoded JSON payload carries no
// content worth forwarding. Empty strings, zero numbers, and false count
// the same as a missing payload.
func emptySignalPayload(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return v == 0
	case bool:
		return !v
	}
	return false
}

// copySettings snapshots a settings blob before it escapes the state lock:
// peers serialize messages asynchronously and the live map keeps mutating.
func copySettings(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	return out
}
