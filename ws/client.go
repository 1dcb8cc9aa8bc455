package ws

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Client is one websocket connection bound to a scope: the user's personal
// channel, or a single conversation channel when conversationID is set.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	userID         string
	conversationID uuid.UUID
	send           chan Event
}

// Serve registers the connection with the hub and runs the pumps. It blocks
// until the connection drops, for a personal-channel connection pass
// uuid.Nil as the conversation id.
func (h *Hub) Serve(conn *websocket.Conn, userID string, conversationID uuid.UUID) {
	c := &Client{
		hub:            h,
		conn:           conn,
		userID:         userID,
		conversationID: conversationID,
		send:           make(chan Event, sendBufferSize),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

// readPump discards inbound frames; the protocol is push-only. Reading is
// still required so close and pong control frames get processed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
