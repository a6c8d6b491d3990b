// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fixture

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types on the hydration channel.
const (
	MsgTypeCircuits = "CIRCUITS"
	MsgTypePing     = "PING"
	MsgTypePong     = "PONG"
	MsgTypeError    = "ERROR"
)

// Message is one frame on the hydration channel.
type Message struct {
	Type     string    `json:"type"`
	Circuits []Circuit `json:"circuits,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan Message
	done   chan struct{}
	logger *zap.Logger
}

// hydrationHandler upgrades the connection and pushes the circuits snapshot
// once the configured delay has elapsed.
func hydrationHandler(store *CircuitStore, delay time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		c := &wsClient{
			conn:   conn,
			send:   make(chan Message, 8),
			done:   make(chan struct{}),
			logger: logger,
		}
		go c.writePump()
		go c.readPump()
		go c.hydrate(store, delay)
	}
}

func (c *wsClient) hydrate(store *CircuitStore, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-c.done:
		return
	}
	circuits, err := store.List()
	if err != nil {
		c.logger.Error("list circuits", zap.Error(err))
		c.sendJSON(Message{Type: MsgTypeError, Error: "cannot load circuits"})
		return
	}
	c.logger.Debug("hydrating client", zap.Int("circuits", len(circuits)))
	c.sendJSON(Message{Type: MsgTypeCircuits, Circuits: circuits})
}

func (c *wsClient) sendJSON(msg Message) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// readPump drains the connection and answers application pings.
func (c *wsClient) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case MsgTypePing:
			c.sendJSON(Message{Type: MsgTypePong})
		default:
			c.sendJSON(Message{Type: MsgTypeError, Error: "Unknown message type"})
		}
	}
}

// writePump serializes writes to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
