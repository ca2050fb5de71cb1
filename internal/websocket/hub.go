package websocket

import (
	"log"
	"sync"
)

// Hub maintains the set of active clients, routes per-user notifications and
// fans topic events out to subscribed clients.
type Hub struct {
	// Registered clients by user ID
	clients map[uint64]map[*Client]bool

	// Clients by subscribed topic, e.g. "post:42:comments"
	topics map[string]map[*Client]bool

	// Inbound messages from the clients
	broadcast chan *Message

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe/unsubscribe requests from clients
	subscribe   chan subscription
	unsubscribe chan subscription

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	UserID  uint64                 `json:"user_id,omitempty"`
	Topic   string                 `json:"topic,omitempty"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type subscription struct {
	client *Client
	topic  string
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[uint64]map[*Client]bool),
		topics:      make(map[string]map[*Client]bool),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription, 64),
		unsubscribe: make(chan subscription, 64),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.Printf("Client registered: UserID=%d, Total clients for user: %d", client.UserID, h.GetClientCount(client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.shutdown()
					if len(clients) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.removeFromAllTopics(client)
			h.mu.Unlock()
			log.Printf("Client unregistered: UserID=%d", client.UserID)

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.topics[sub.topic] == nil {
				h.topics[sub.topic] = make(map[*Client]bool)
			}
			h.topics[sub.topic][sub.client] = true
			sub.client.topics[sub.topic] = true
			h.mu.Unlock()

		case sub := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.topics[sub.topic]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.topics, sub.topic)
				}
			}
			delete(sub.client.topics, sub.topic)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			switch {
			case message.Topic != "":
				// Send to topic subscribers
				for client := range h.topics[message.Topic] {
					h.send(client, message)
				}
			case message.UserID != 0:
				// Send to specific user
				for client := range h.clients[message.UserID] {
					h.send(client, message)
				}
			default:
				// Broadcast to all clients
				for _, clients := range h.clients {
					for client := range clients {
						h.send(client, message)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// send enqueues a message on a client. A client whose buffer is full is too
// slow to keep up: it is signalled to shut down and its maps are cleaned up
// afterwards by the regular unregister path, so only the read lock is needed
// here.
func (h *Hub) send(client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		client.shutdown()
	}
}

// removeFromAllTopics clears a client's topic subscriptions. Caller holds
// the write lock.
func (h *Hub) removeFromAllTopics(client *Client) {
	for topic := range client.topics {
		if clients, ok := h.topics[topic]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.topics, topic)
			}
		}
	}
}

// BroadcastToUser sends a message to all of a user's connections
func (h *Hub) BroadcastToUser(userID uint64, payload map[string]interface{}) {
	message := &Message{
		UserID:  userID,
		Type:    "notification",
		Payload: payload,
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, dropping message for user: %d", userID)
	}
}

// BroadcastToTopic sends a message to every client subscribed to a topic
func (h *Hub) BroadcastToTopic(topic string, payload map[string]interface{}) {
	message := &Message{
		Topic:   topic,
		Type:    "event",
		Payload: payload,
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, dropping message for topic: %s", topic)
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(payload map[string]interface{}) {
	message := &Message{
		Type:    "broadcast",
		Payload: payload,
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Broadcast channel full, dropping broadcast message")
	}
}

// GetClientCount returns the number of connected clients for a user
func (h *Hub) GetClientCount(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[userID]; ok {
		return len(clients)
	}
	return 0
}

// GetTopicSubscriberCount returns the number of clients subscribed to a topic
func (h *Hub) GetTopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.topics[topic]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalClientCount returns the total number of connected clients
func (h *Hub) GetTotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
