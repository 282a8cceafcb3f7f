// internal/messenger/hub.go
// Hub maintains active websocket connections and fans events out to chat
// participants. It is pure transport: the directory stays correct whether
// or not anyone is connected.

package messenger

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Broadcaster is the event fan-out the conversation service and the
// simulator publish through. Nil is a valid value in tests.
type Broadcaster interface {
	BroadcastToChat(chat *Chat, event WSMessage, exceptUserID string)
}

// NewWSMessage wraps a payload in the event envelope.
func NewWSMessage(eventType string, data interface{}) WSMessage {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = json.RawMessage(`{}`)
	}
	return WSMessage{Type: eventType, Data: raw, Timestamp: Now()}
}

type Hub struct {
	clients    map[string]*Client
	clientsMux sync.RWMutex

	register   chan *Client
	unregister chan *Client

	log *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(log *zap.SugaredLogger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer func() {
		h.cleanup()
		close(h.done)
	}()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// One connection per user; a reconnect replaces the old one.
	if oldClient, exists := h.clients[client.userID]; exists {
		oldClient.Close()
	}
	h.clients[client.userID] = client
	wsConnections.Set(float64(len(h.clients)))

	h.log.Infow("user connected", "userId", client.userID, "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		client.Close()
		delete(h.clients, client.userID)
		wsConnections.Set(float64(len(h.clients)))

		h.log.Infow("user disconnected", "userId", client.userID, "clients", len(h.clients))
	}
}

// BroadcastToChat delivers an event to every connected participant of the
// chat except exceptUserID. Offline participants simply miss the event;
// state lives in the directory, not on the wire.
func (h *Hub) BroadcastToChat(chat *Chat, event WSMessage, exceptUserID string) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warnw("event marshal failed", "type", event.Type, "error", err)
		return
	}

	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	for _, userID := range chat.ParticipantIDs {
		if userID == exceptUserID {
			continue
		}
		client, exists := h.clients[userID]
		if !exists {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Channel blocked; drop the connection rather than the hub.
			go h.drop(client)
		}
	}
}

// SendToUser delivers an event to a single connected user.
func (h *Hub) SendToUser(userID string, event WSMessage) {
	h.clientsMux.RLock()
	client, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		go h.drop(client)
	}
}

// drop hands a client to the run loop for unregistration. After shutdown
// the run loop no longer receives; the send must not block forever then.
func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

func (h *Hub) ActiveConnections() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Shutdown stops the run loop and waits until it has closed every
// client. Requires Run to have been started.
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[string]*Client)
	wsConnections.Set(0)
	h.clientsMux.Unlock()
}
