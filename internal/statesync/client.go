package statesync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Client subscribes to a sync server and delivers snapshots to a
// callback. Used by remote viewers.
type Client struct {
	URL string

	// OnSnapshot receives every snapshot frame, pushed or requested.
	OnSnapshot func(Snapshot)
	// OnReady receives the server greeting once, after the dial.
	OnReady func(version int64)

	conn *websocket.Conn
}

// Connect dials the server and performs the hello handshake, subscribing
// to worktree snapshots.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.URL, err)
	}
	c.conn = conn

	hello := clientFrame{Type: msgHello, Subs: []string{topicWorktrees}}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return fmt.Errorf("hello: %w", err)
	}
	return nil
}

// Request asks for the current snapshot immediately, without waiting for
// the server's next refresh tick.
func (c *Client) Request() error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(clientFrame{Type: msgGet})
}

// Listen reads frames until the context is done or the connection drops,
// dispatching to the callbacks. Blocks the caller.
func (c *Client) Listen(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var frame serverFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// Unknown frames from newer servers are skipped, not fatal.
			continue
		}
		switch frame.Type {
		case msgReady:
			if c.OnReady != nil {
				c.OnReady(frame.Version)
			}
		case msgSnapshot:
			if c.OnSnapshot != nil {
				c.OnSnapshot(Snapshot{Version: frame.Version, Items: frame.Items})
			}
		}
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
