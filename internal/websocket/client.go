package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024 // 64 KB
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages. Never closed: both the hub
	// and the client's own read pump write to it, so termination is
	// signalled through done instead.
	send chan *Message

	// Closed when the client is shutting down (evicted or unregistered)
	done      chan struct{}
	closeOnce sync.Once

	// User ID associated with this client
	UserID uint64

	// Topics this client is subscribed to. Touched only by the hub
	// goroutine.
	topics map[string]bool
}

// NewClient creates a new client
func NewClient(hub *Hub, conn *websocket.Conn, userID uint64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *Message, 256),
		done:   make(chan struct{}),
		UserID: userID,
		topics: make(map[string]bool),
	}
}

// shutdown signals the write pump to exit. Safe to call from any goroutine,
// any number of times.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue hands a message to the write pump without ever blocking the
// caller. Messages to a client whose buffer is full are dropped.
func (c *Client) enqueue(message *Message) {
	select {
	case c.send <- message:
	default:
	}
}

// clientCommand is what clients send on the wire: subscribe/unsubscribe to
// a topic, or a ping.
type clientCommand struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var cmd clientCommand
		if err := json.Unmarshal(messageBytes, &cmd); err != nil {
			continue
		}

		switch cmd.Type {
		case "subscribe":
			if cmd.Topic == "" {
				continue
			}
			c.hub.subscribe <- subscription{client: c, topic: cmd.Topic}
		case "unsubscribe":
			if cmd.Topic == "" {
				continue
			}
			c.hub.unsubscribe <- subscription{client: c, topic: cmd.Topic}
		case "ping":
			c.enqueue(&Message{
				Type: "pong",
				Payload: map[string]interface{}{
					"timestamp": time.Now().Unix(),
				},
			})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			jsonData, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}

			w.Write(jsonData)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				queuedMessage := <-c.send
				jsonData, err := json.Marshal(queuedMessage)
				if err != nil {
					log.Printf("Error marshaling queued message: %v", err)
					continue
				}
				w.Write([]byte("\n"))
				w.Write(jsonData)
			}

			if err := w.Close(); err != nil {
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

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	c.readPump()
}
