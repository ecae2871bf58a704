// Package relay is a room-scoped WebSocket message broker. Payloads are
// opaque: frames are relayed verbatim, binary or text, to every other
// client in the sender's room. The server imposes no message schema.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Defaults for the relay server.
const (
	DefaultPath              = "/relay"
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultMaxClientsPerRoom = 8

	// pongGraceFactor gives two missed heartbeats of tolerance before a
	// peer is declared dead. Transient network jitter is not a death.
	pongGraceFactor = 2.5

	writeWait = 10 * time.Second
)

// TokenValidator decides whether a connection may join. A nil validator
// admits everyone.
type TokenValidator func(ctx context.Context, room, clientID, token string) bool

// Options configures a Server.
type Options struct {
	Path              string
	HeartbeatInterval time.Duration
	MaxClientsPerRoom int
	ValidateToken     TokenValidator
	Logger            *slog.Logger
}

// client is one joined connection. Mutated only by the reactor.
type client struct {
	id       string
	room     string
	conn     *websocket.Conn
	lastPong time.Time
}

// event types posted to the reactor. All room state mutation happens on
// the reactor goroutine; handlers and the heartbeat sweep interleave
// cooperatively and never run simultaneously.
type joinEvent struct {
	c     *client
	ready chan bool // false: room full, connection was rejected
}

type leaveEvent struct{ c *client }

type frameEvent struct {
	from        *client
	messageType int
	data        []byte
}

type pongEvent struct{ c *client }

// Server is the relay broker.
type Server struct {
	opts  Options
	log   *slog.Logger
	rooms map[string]map[string]*client

	join   chan joinEvent
	leave  chan leaveEvent
	frames chan frameEvent
	pongs  chan pongEvent
	counts chan chan int
	done   chan struct{}
}

// NewServer creates a relay server with defaults applied.
func NewServer(opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.MaxClientsPerRoom <= 0 {
		opts.MaxClientsPerRoom = DefaultMaxClientsPerRoom
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		log:    opts.Logger,
		rooms:  make(map[string]map[string]*client),
		join:   make(chan joinEvent),
		leave:  make(chan leaveEvent),
		frames: make(chan frameEvent, 64),
		pongs:  make(chan pongEvent, 64),
		counts: make(chan chan int),
		done:   make(chan struct{}),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers connect from anywhere; the token check is the gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Run drives the reactor until Stop is called. Room and client state is
// owned exclusively by this goroutine.
func (s *Server) Run() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			s.closeAll()
			return
		case ev := <-s.join:
			ev.ready <- s.handleJoin(ev.c)
		case ev := <-s.leave:
			s.handleLeave(ev.c)
		case ev := <-s.frames:
			s.handleFrame(ev)
		case ev := <-s.pongs:
			ev.c.lastPong = time.Now()
		case reply := <-s.counts:
			reply <- len(s.rooms)
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Stop shuts down the reactor and closes every connection.
func (s *Server) Stop() {
	close(s.done)
}

// RoomCount reports the number of live rooms, answered by the reactor so
// callers never touch the room map directly.
func (s *Server) RoomCount() int {
	reply := make(chan int, 1)
	select {
	case s.counts <- reply:
		return <-reply
	case <-s.done:
		return 0
	}
}

func (s *Server) handleJoin(c *client) bool {
	room, ok := s.rooms[c.room]
	if !ok {
		room = make(map[string]*client)
		s.rooms[c.room] = room
	}
	if len(room) >= s.opts.MaxClientsPerRoom {
		if len(room) == 0 {
			delete(s.rooms, c.room)
		}
		return false
	}
	// A rejoining clientId replaces its previous connection.
	if prev, exists := room[c.id]; exists {
		prev.conn.Close()
	}
	room[c.id] = c
	s.log.Info("relay client joined", "room", c.room, "client", c.id, "peers", len(room))
	return true
}

func (s *Server) handleLeave(c *client) {
	room, ok := s.rooms[c.room]
	if !ok {
		return
	}
	if current, exists := room[c.id]; !exists || current != c {
		return
	}
	delete(room, c.id)
	c.conn.Close()
	if len(room) == 0 {
		delete(s.rooms, c.room)
	}
	s.log.Info("relay client left", "room", c.room, "client", c.id)
}

// handleFrame relays a frame to every other client in the sender's room.
// A dead peer must not affect delivery to the rest, so send errors are
// swallowed; the heartbeat sweep reaps the dead peer later.
func (s *Server) handleFrame(ev frameEvent) {
	room, ok := s.rooms[ev.from.room]
	if !ok {
		return
	}
	for id, peer := range room {
		if id == ev.from.id {
			continue
		}
		peer.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := peer.conn.WriteMessage(ev.messageType, ev.data); err != nil {
			s.log.Debug("relay send failed", "room", ev.from.room, "client", id, "err", err)
		}
	}
}

// sweep terminates peers that have missed two heartbeats and pings the
// rest. Connections whose reader already exited were dropped by their
// leave event before this runs.
func (s *Server) sweep() {
	deadline := time.Duration(float64(s.opts.HeartbeatInterval) * pongGraceFactor)
	now := time.Now()

	for roomID, room := range s.rooms {
		for id, c := range room {
			switch {
			case now.Sub(c.lastPong) > deadline:
				s.log.Info("relay peer dead, terminating", "room", roomID, "client", id)
				c.conn.Close()
				delete(room, id)
			default:
				c.conn.SetWriteDeadline(now.Add(writeWait))
				if err := c.conn.WriteControl(websocket.PingMessage, nil, now.Add(writeWait)); err != nil {
					s.log.Debug("relay ping failed", "room", roomID, "client", id, "err", err)
				}
			}
		}
		if len(room) == 0 {
			delete(s.rooms, roomID)
		}
	}
}

func (s *Server) closeAll() {
	for _, room := range s.rooms {
		for _, c := range room {
			c.conn.Close()
		}
	}
	s.rooms = make(map[string]map[string]*client)
}

// ServeHTTP upgrades and validates a connection, then pumps its frames
// into the reactor. Implements the connection state machine
// connecting -> (validated | rejected) -> joined -> (closed | terminated).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("relay upgrade failed", "err", err)
		return
	}

	if r.URL.Path != s.opts.Path {
		closeWith(conn, websocket.ClosePolicyViolation, "unknown path")
		return
	}

	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "room required")
		return
	}
	clientID := q.Get("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	if s.opts.ValidateToken != nil && !s.opts.ValidateToken(r.Context(), roomID, clientID, q.Get("token")) {
		closeWith(conn, websocket.ClosePolicyViolation, "invalid token")
		return
	}

	c := &client{id: clientID, room: roomID, conn: conn, lastPong: time.Now()}
	conn.SetPongHandler(func(string) error {
		select {
		case s.pongs <- pongEvent{c: c}:
		default:
		}
		return nil
	})

	ready := make(chan bool, 1)
	select {
	case s.join <- joinEvent{c: c, ready: ready}:
	case <-s.done:
		conn.Close()
		return
	}
	if !<-ready {
		closeWith(conn, websocket.CloseTryAgainLater, "room full")
		return
	}

	s.readPump(c)
}

// readPump forwards frames from one connection into the reactor until
// the connection dies, then posts the leave.
func (s *Server) readPump(c *client) {
	defer func() {
		select {
		case s.leave <- leaveEvent{c: c}:
		case <-s.done:
			c.conn.Close()
		}
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.frames <- frameEvent{from: c, messageType: messageType, data: data}:
		case <-s.done:
			return
		}
	}
}

// closeWith sends a close frame with the given code, then closes.
func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}
