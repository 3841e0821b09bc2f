// Package ws implements the WebSocket session (C9), subscription
// registry (C10), and message dispatcher (C11). The read and ping tasks
// of one connection attempt are joined with golang.org/x/sync/errgroup
// rather than launched as detached goroutines the way
// _examples/0xtitan6-polymarket-mm/internal/exchange/ws.go does it (that
// file's pingLoop is a fire-and-forget `go f.pingLoop(ctx)` with no
// return path) — errgroup.Wait gives the supervisor loop a single place
// to observe either task's exit and decide whether to reconnect, instead
// of relying on both goroutines eventually noticing a cancelled context
// on their own.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"hlconnector/internal/config"
	"hlconnector/internal/hlerrors"
)

// State is the WebSocket session's lifecycle state (§4.9).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateConnectionLost
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateConnectionLost:
		return "connection_lost"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Session owns one logical WebSocket connection with reconnect and
// subscription replay (§4.9).
type Session struct {
	url string
	cfg config.WebsocketConfig
	log *slog.Logger

	registry  *Registry
	onMessage func(Message)

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex

	connected       atomic.Bool
	shouldReconnect atomic.Bool
	state           atomic.Int32

	supervisorDone chan struct{}
}

// New constructs a Session bound to url, with cfg governing timeouts and
// reconnect behavior. onMessage is invoked from the read task's own
// goroutine for every frame the dispatcher parses; it must not block
// indefinitely (§4.9).
func New(url string, cfg config.WebsocketConfig, registry *Registry, onMessage func(Message), log *slog.Logger) *Session {
	return &Session{
		url:       url,
		cfg:       cfg,
		registry:  registry,
		onMessage: onMessage,
		log:       log,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether the session currently believes it has a
// live connection.
func (s *Session) IsConnected() bool {
	return s.connected.Load()
}

// Connect dials the WebSocket, blocking until the initial handshake
// succeeds or fails, then starts the supervisor goroutine that owns the
// read/ping tasks and reconnect loop for the session's remaining
// lifetime.
func (s *Session) Connect(ctx context.Context) error {
	s.state.Store(int32(StateConnecting))
	s.shouldReconnect.Store(true)

	conn, err := s.dial(ctx)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		return hlerrors.WrapTransport("websocket connect", err)
	}

	s.setConn(conn)
	s.connected.Store(true)
	s.state.Store(int32(StateConnected))

	s.supervisorDone = make(chan struct{})
	go s.supervise(ctx)

	return nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(s.cfg.HandshakeTimeoutMS) * time.Millisecond,
	}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(int64(s.cfg.MaxMessageBytes))
	}
	return conn, nil
}

func (s *Session) setConn(c *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn = c
}

func (s *Session) getConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// supervise runs the read+ping tasks for the current connection, and on
// loss (while shouldReconnect is true) sleeps and reconnects, replaying
// every active subscription, until ctx is cancelled, Disconnect is
// called, or max_reconnect_attempts is exhausted.
func (s *Session) supervise(ctx context.Context) {
	defer close(s.supervisorDone)

	attempts := 0
	for {
		err := s.runConnection(ctx)

		if !s.shouldReconnect.Load() || ctx.Err() != nil {
			return
		}

		s.connected.Store(false)
		s.state.Store(int32(StateConnectionLost))
		s.log.Warn("websocket connection lost, reconnecting", "error", err)

		attempts++
		if s.cfg.MaxReconnectAttempts > 0 && attempts > s.cfg.MaxReconnectAttempts {
			s.log.Error("websocket reconnect attempts exhausted, giving up")
			s.state.Store(int32(StateDisconnected))
			return
		}

		s.state.Store(int32(StateReconnecting))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(s.cfg.ReconnectIntervalMS) * time.Millisecond):
		}
		if !s.shouldReconnect.Load() {
			return
		}

		conn, dialErr := s.dial(ctx)
		if dialErr != nil {
			s.log.Warn("websocket reconnect attempt failed", "attempt", attempts, "error", dialErr)
			continue
		}
		s.setConn(conn)
		s.connected.Store(true)
		s.state.Store(int32(StateConnected))
		attempts = 0

		s.replaySubscriptions()
	}
}

// runConnection runs one connection's read and ping tasks until either
// exits, joined via errgroup so the supervisor sees a single error.
func (s *Session) runConnection(ctx context.Context) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(connCtx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.pingLoop(gctx) })
	return g.Wait()
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn := s.getConn()
		if conn == nil {
			return fmt.Errorf("ws: no connection")
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if !s.shouldReconnect.Load() {
				// Shutting down: treat as silent (§4.9).
				return nil
			}
			return err
		}

		msg := Parse(data)
		s.onMessage(msg)
	}
}

func (s *Session) pingLoop(ctx context.Context) error {
	interval := time.Duration(s.cfg.PingIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.writePing(); err != nil {
				if !s.shouldReconnect.Load() {
					return nil
				}
				return err
			}
		}
	}
}

func (s *Session) writePing() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn := s.getConn()
	if conn == nil {
		return fmt.Errorf("ws: no connection")
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// writeJSON serializes v and writes it through the mutex-serialized
// socket write path (§5: "the ping task, reconnect/replay path, and
// subscribe/unsubscribe path all write through it").
func (s *Session) writeJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn := s.getConn()
	if conn == nil {
		return hlerrors.ErrNotInitialized
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// Subscribe registers sub in the registry and, if newly added, sends the
// subscribe frame.
func (s *Session) Subscribe(sub Subscription) error {
	if !s.registry.Add(sub) {
		return nil
	}
	msg, err := sub.marshal("subscribe")
	if err != nil {
		return err
	}
	return s.writeRaw(msg)
}

// Unsubscribe removes sub from the registry and, if it was present,
// sends the unsubscribe frame.
func (s *Session) Unsubscribe(sub Subscription) error {
	if !s.registry.Remove(sub) {
		return nil
	}
	msg, err := sub.marshal("unsubscribe")
	if err != nil {
		return err
	}
	return s.writeRaw(msg)
}

func (s *Session) writeRaw(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn := s.getConn()
	if conn == nil {
		return hlerrors.ErrNotInitialized
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) replaySubscriptions() {
	for _, sub := range s.registry.Snapshot() {
		msg, err := sub.marshal("subscribe")
		if err != nil {
			s.log.Warn("failed to marshal subscription replay", "error", err)
			continue
		}
		if err := s.writeRaw(msg); err != nil {
			s.log.Warn("failed to replay subscription", "channel", sub.Channel, "error", err)
		}
	}
}

// Disconnect flips should_reconnect then connected to false, closes the
// transport, and waits briefly in two phases for the supervisor and its
// tasks to observe the flags and exit (§4.9, §5).
func (s *Session) Disconnect() {
	s.shouldReconnect.Store(false)
	s.connected.Store(false)
	s.state.Store(int32(StateDisconnecting))

	if conn := s.getConn(); conn != nil {
		_ = conn.Close()
	}

	done := s.supervisorDone
	if done != nil {
		select {
		case <-done:
		case <-time.After(150 * time.Millisecond):
		}
	}
	time.Sleep(150 * time.Millisecond)
	s.state.Store(int32(StateDisconnected))
}
