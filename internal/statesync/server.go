package statesync

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
)

// Defaults for the sync server.
const (
	DefaultPath            = "/sync"
	DefaultRefreshInterval = 30 * time.Second

	writeWait = 10 * time.Second
)

// Frame types on the wire.
const (
	msgReady    = "ready"
	msgSnapshot = "worktrees.snapshot"
	msgHello    = "hello"
	msgGet      = "get.worktrees"
)

// topicWorktrees is the only subscription topic currently meaningful.
const topicWorktrees = "worktrees"

// serverFrame is every server-to-client message.
type serverFrame struct {
	Type    string    `json:"type"`
	Version int64     `json:"version"`
	TS      string    `json:"ts,omitempty"`
	Items   []Summary `json:"items,omitempty"`
}

// clientFrame is every client-to-server message.
type clientFrame struct {
	Type string   `json:"type"`
	Subs []string `json:"subs,omitempty"`
}

// Options configures a Server.
type Options struct {
	Path            string
	RefreshInterval time.Duration
	// WatchDirs, when set, triggers an early refresh whenever a file
	// event lands under one of these directories (projects base and
	// archive roots). Purely an optimization over the timer.
	WatchDirs []string
	Logger    *slog.Logger
}

// subscriber is one connected viewer. Owned by the reactor.
type subscriber struct {
	conn   *websocket.Conn
	pushes bool // said hello with a worktrees subscription
}

// reactor events.
type syncJoin struct{ c *subscriber }
type syncLeave struct{ c *subscriber }
type syncMsg struct {
	c     *subscriber
	frame clientFrame
}

// Server periodically recomputes a snapshot and pushes it to subscribed
// clients. The snapshot cache and subscriber set are owned by the single
// reactor goroutine; no lock discipline is needed.
type Server struct {
	opts    Options
	log     *slog.Logger
	builder Builder

	current Snapshot

	join   chan syncJoin
	leave  chan syncLeave
	msgs   chan syncMsg
	kick   chan struct{} // filesystem watcher requesting a refresh
	done   chan struct{}
}

// NewServer creates a sync server with defaults applied.
func NewServer(builder Builder, opts Options) *Server {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		log:     opts.Logger,
		builder: builder,
		join:    make(chan syncJoin),
		leave:   make(chan syncLeave),
		msgs:    make(chan syncMsg, 16),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Run drives the refresh timer and message handling until Stop. The
// first refresh happens immediately so early clients see real data.
func (s *Server) Run() {
	subscribers := make(map[*subscriber]struct{})

	s.refresh(subscribers)

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	watcher := s.startWatcher()
	if watcher != nil {
		defer watcher.Close()
	}

	for {
		select {
		case <-s.done:
			for c := range subscribers {
				c.conn.Close()
			}
			return
		case ev := <-s.join:
			subscribers[ev.c] = struct{}{}
			s.send(ev.c, serverFrame{
				Type:    msgReady,
				Version: s.current.Version,
				TS:      time.Now().UTC().Format(time.RFC3339),
			})
		case ev := <-s.leave:
			if _, ok := subscribers[ev.c]; ok {
				delete(subscribers, ev.c)
				ev.c.conn.Close()
			}
		case ev := <-s.msgs:
			s.handleMessage(ev)
		case <-s.kick:
			s.refresh(subscribers)
			ticker.Reset(s.opts.RefreshInterval)
		case <-ticker.C:
			s.refresh(subscribers)
		}
	}
}

// Stop shuts down the reactor and closes all connections.
func (s *Server) Stop() {
	close(s.done)
}

// refresh recomputes the snapshot and pushes it to subscribed clients.
// A failed build keeps the previous snapshot and version; the timer loop
// must survive any refresh failure.
func (s *Server) refresh(subscribers map[*subscriber]struct{}) {
	items, err := s.builder.Build()
	if err != nil {
		s.log.Warn("sync refresh failed, keeping previous snapshot",
			"version", s.current.Version, "err", err)
		return
	}
	s.current = Snapshot{Version: s.current.Version + 1, Items: items}

	frame := serverFrame{Type: msgSnapshot, Version: s.current.Version, Items: s.current.Items}
	for c := range subscribers {
		if c.pushes {
			s.send(c, frame)
		}
	}
}

func (s *Server) handleMessage(ev syncMsg) {
	switch ev.frame.Type {
	case msgHello:
		// No subs means subscribe to everything meaningful.
		if len(ev.frame.Subs) == 0 {
			ev.c.pushes = true
			break
		}
		for _, sub := range ev.frame.Subs {
			if sub == topicWorktrees {
				ev.c.pushes = true
			}
		}
	case msgGet:
		s.send(ev.c, serverFrame{
			Type:    msgSnapshot,
			Version: s.current.Version,
			Items:   s.current.Items,
		})
	}
}

// send marshals and writes a frame. Failures are the peer's problem: the
// read pump will notice the dead connection and post the leave.
func (s *Server) send(c *subscriber, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		s.log.Error("sync frame marshal", "err", err)
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug("sync send failed", "err", err)
	}
}

// startWatcher wires fsnotify to the kick channel. Watching is strictly
// optional; any setup failure just means timer-only refreshes.
func (s *Server) startWatcher() *fsnotify.Watcher {
	if len(s.opts.WatchDirs) == 0 {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Debug("sync watcher unavailable", "err", err)
		return nil
	}
	for _, dir := range s.opts.WatchDirs {
		if err := watcher.Add(dir); err != nil {
			s.log.Debug("sync watch failed", "dir", dir, "err", err)
		}
	}
	go func() {
		for {
			select {
			case <-s.done:
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				select {
				case s.kick <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades a viewer connection and pumps its messages into the
// reactor.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("sync upgrade failed", "err", err)
		return
	}

	c := &subscriber{conn: conn}
	select {
	case s.join <- syncJoin{c: c}:
	case <-s.done:
		conn.Close()
		return
	}

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		select {
		case s.msgs <- syncMsg{c: c, frame: frame}:
		case <-s.done:
			return
		}
	}

	select {
	case s.leave <- syncLeave{c: c}:
	case <-s.done:
		conn.Close()
	}
}
