package signaling

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicemesh/signal-relay/internal/metrics"
	"github.com/voicemesh/signal-relay/internal/origin"
	"github.com/voicemesh/signal-relay/internal/ratelimit"
	"github.com/voicemesh/signal-relay/internal/relay"
)

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	Relay   *relay.Relay
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// AllowedOrigins is the browser Origin allow-list. Empty means the
	// default same-host policy; "*" allows any origin.
	AllowedOrigins []string

	// Inbound WebSocket hardening.
	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	// IdleTimeout closes connections with no inbound traffic; PingInterval
	// keeps healthy connections under it.
	IdleTimeout  time.Duration
	PingInterval time.Duration
}

// Server implements the relay's WebSocket signaling surface.
//
// Endpoint:
//   - GET /signal : the event stream every connected client holds open
type Server struct {
	Relay   *relay.Relay
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	AllowedOrigins []string

	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	IdleTimeout  time.Duration
	PingInterval time.Duration
}

func NewServer(cfg Config) *Server {
	return &Server{
		Relay:   cfg.Relay,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,

		AllowedOrigins: cfg.AllowedOrigins,

		MaxMessageBytes:      cfg.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,

		IdleTimeout:  cfg.IdleTimeout,
		PingInterval: cfg.PingInterval,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /signal", s.handleSignal)
}

// Handler provides minimal routing for tests and simple deployments.
//
// The production binary typically wires routes through httpserver.Server.Mux()
// using RegisterRoutes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) maxMessageBytes() int64 {
	if s.MaxMessageBytes <= 0 {
		return 64 * 1024
	}
	return s.MaxMessageBytes
}

func (s *Server) maxMessagesPerSecond() int {
	if s.MaxMessagesPerSecond <= 0 {
		return 50
	}
	return s.MaxMessagesPerSecond
}

func (s *Server) idleTimeout() time.Duration {
	if s.IdleTimeout <= 0 {
		return 60 * time.Second
	}
	return s.IdleTimeout
}

func (s *Server) pingInterval() time.Duration {
	if s.PingInterval <= 0 {
		return 20 * time.Second
	}
	return s.PingInterval
}

func (s *Server) checkOrigin(r *http.Request) bool {
	raw := r.Header.Get("Origin")
	if raw == "" {
		// Non-browser clients (the desktop app) send no Origin header.
		return true
	}
	normalized, host, ok := origin.Normalize(raw)
	if !ok {
		return false
	}
	return origin.Allowed(normalized, host, r.Host, s.AllowedOrigins)
}

const (
	wsWriteWait = 1 * time.Second

	// sendBuffer bounds per-connection outbound backlog. A client that falls
	// this far behind a broadcast is disconnected rather than held open.
	sendBuffer = 64
)

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	if s.Relay == nil {
		http.Error(w, "relay not configured", http.StatusInternalServerError)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	peer := &wsPeer{
		sessionID: uuid.NewString(),
		conn:      conn,
		log:       s.logger(),
		metrics:   s.Metrics,
		send:      make(chan relay.Message, sendBuffer),
		done:      make(chan struct{}),
	}
	go peer.writePump(s.pingInterval())
	s.serve(peer)
}

// serve is the per-connection read loop. It owns the session's relay
// registration: the session exists for exactly as long as serve runs.
func (s *Server) serve(p *wsPeer) {
	conn := p.conn
	log := s.logger().With("session", p.sessionID, "remote", conn.RemoteAddr().String())

	defer func() {
		s.Relay.Disconnect(p.sessionID)
		p.Kick()
		log.Info("session closed")
	}()

	limiter := ratelimit.NewTokenBucket(
		ratelimit.RealClock{},
		int64(s.maxMessagesPerSecond()),
		int64(s.maxMessagesPerSecond()),
	)

	idle := s.idleTimeout()
	conn.SetReadLimit(s.maxMessageBytes())
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})

	s.Relay.Connect(p.sessionID, p)
	log.Info("session connected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))
		// Apply the per-session message rate limit *after* reading the
		// message so we consume any bytes already in the TCP receive buffer.
		//
		// If we close before reading, the OS may send an abortive close (RST)
		// due to unread data, preventing clients from reliably observing the
		// WebSocket close code/reason.
		if !limiter.Allow(1) {
			s.Metrics.Inc(metrics.RateLimitedTotal)
			p.closeWith(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}
		if msgType != websocket.TextMessage {
			p.closeWith(websocket.CloseUnsupportedData, "expected text message")
			return
		}

		msg, err := parseClientMessage(data)
		if err == nil {
			err = s.dispatch(p, msg)
		}
		if err != nil {
			s.Metrics.Inc(metrics.MalformedTotal)
			log.Warn("malformed message", "error", err)
			p.closeWith(websocket.ClosePolicyViolation, "bad message")
			return
		}
	}
}

// dispatch decodes one event's arguments and applies it. A returned error
// means the frame was malformed and the connection must be torn down;
// events inapplicable in the session's current state are dropped inside the
// relay. Unrecognized events are ignored for forward compatibility.
func (s *Server) dispatch(p *wsPeer, msg clientMessage) error {
	switch msg.Event {
	case relay.EventJoin:
		code, playerID, err := decodeJoinArgs(msg.Args)
		if err != nil {
			return err
		}
		s.Relay.Join(p.sessionID, code, playerID)
	case relay.EventID:
		playerID, err := decodeIDArgs(msg.Args)
		if err != nil {
			return err
		}
		s.Relay.SetIdentity(p.sessionID, playerID)
	case relay.EventLobbyPlayerCount:
		code, count, err := decodeLobbyPlayerCountArgs(msg.Args)
		if err != nil {
			return err
		}
		s.Relay.ReportPlayerCount(p.sessionID, code, count)
	case relay.EventSetLobbySetting:
		name, value, err := decodeSetLobbySettingArgs(msg.Args)
		if err != nil {
			return err
		}
		s.Relay.SetSetting(p.sessionID, name, value)
	case relay.EventSignal:
		to, data, err := decodeSignalArgs(msg.Args)
		if err != nil {
			return err
		}
		if err := s.Relay.Signal(p.sessionID, to, data); err != nil {
			return err
		}
	case relay.EventLeave:
		if len(msg.Args) != 0 {
			return errors.New("leave expects no arguments")
		}
		s.Relay.Leave(p.sessionID)
	}
	return nil
}

// wsPeer adapts a gorilla connection to the relay's Peer interface. Sends
// are decoupled from the socket through a buffered channel because the relay
// calls Send while holding its lock.
type wsPeer struct {
	sessionID string
	conn      *websocket.Conn
	log       *slog.Logger
	metrics   *metrics.Metrics

	send      chan relay.Message
	done      chan struct{}
	closeOnce sync.Once
}

// Send queues a message without blocking. A full buffer marks the client as
// a slow consumer and evicts it.
func (p *wsPeer) Send(msg relay.Message) {
	select {
	case p.send <- msg:
	case <-p.done:
	default:
		p.metrics.Inc(metrics.SlowConsumerTotal)
		p.log.Warn("evicting slow consumer", "session", p.sessionID)
		p.Kick()
	}
}

// Kick asks the write pump to shut the connection down. Safe to call from
// any goroutine, any number of times.
func (p *wsPeer) Kick() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *wsPeer) closeWith(code int, reason string) {
	deadline := time.Now().Add(wsWriteWait)
	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// writePump owns all data writes to the socket. Closing the connection here
// also unblocks the read loop.
func (p *wsPeer) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer p.conn.Close()

	for {
		select {
		case msg := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := p.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-p.done:
			p.closeWith(websocket.CloseNormalClosure, "")
			return
		}
	}
}
