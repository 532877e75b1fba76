package socket

import (
	"context"
	"encoding/json"
	"sync"

	"portfoliovault/internal/vault/model"
	"portfoliovault/internal/vault/state"
	"portfoliovault/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	SnapshotType       = "SNAPSHOT"        // Full collection as the client may see it
	PresenceUpdateType = "PRESENCE_UPDATE" // Number of viewers in the room changed
)

type WSMessage struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	Payload    json.RawMessage `json:"payload"`
}

type Presence struct {
	Viewers int `json:"viewers"`
}

// Source supplies collection snapshots. Writings are filtered by the
// viewer's admin flag so private ones never reach viewers.
type Source interface {
	ListDocuments() []model.DocumentMetadata
	ListWritings(admin bool) []model.Writing
}

// Hub keeps one room per collection and pushes a fresh snapshot to every
// client of a room whenever that collection changes.
type Hub struct {
	Rooms      map[state.Collection]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Changed    chan state.Collection
	revoked    chan string
	source     Source
	mu         sync.Mutex
	done       chan struct{}
}

type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Collection state.Collection
	Admin      bool
	Token      string // session token the client connected with, if any
	Send       chan []byte
}

func NewHub(source Source) *Hub {
	return &Hub{
		Rooms:      make(map[state.Collection]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Changed:    make(chan state.Collection, 64),
		revoked:    make(chan string, 16),
		source:     source,
		done:       make(chan struct{}),
	}
}

// Notify queues a change notification. It is registered as a vault
// observer, so it must not block the mutating request.
func (h *Hub) Notify(c state.Collection) {
	select {
	case h.Changed <- c:
	default:
		// A snapshot for this collection is already queued behind a full
		// buffer; the next one will carry the latest state.
		logger.Sugar.Warnf("Change queue full, dropping %s notification", c)
	}
}

// Revoke queues the disconnection of every client that connected with
// token. It is registered as a logout observer and must not block.
func (h *Hub) Revoke(token string) {
	if token == "" {
		return
	}
	select {
	case h.revoked <- token:
	default:
		logger.Sugar.Warnf("Revoke queue full, admin sockets of a logged out session stay open until they reconnect")
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Collection] == nil {
				h.Rooms[client.Collection] = make(map[*Client]bool)
			}
			h.Rooms[client.Collection][client] = true
			h.mu.Unlock()

			// The new client starts from the current state of its collection.
			if payload, err := h.snapshot(client.Collection, client.Admin); err == nil {
				client.Send <- payload
			} else {
				logger.Sugar.Errorf("Error building %s snapshot: %v", client.Collection, err)
			}
			h.broadcastPresenceUpdate(client.Collection)

		case client := <-h.Unregister:
			if h.remove(client) {
				h.broadcastPresenceUpdate(client.Collection)
			}

		case c := <-h.Changed:
			h.broadcastSnapshot(c)

		case token := <-h.revoked:
			h.dropToken(token)
		}
	}
}

// remove drops client from its room and closes its send channel. It
// reports false when the client was already gone.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Rooms[client.Collection][client]; !ok {
		return false
	}
	delete(h.Rooms[client.Collection], client)
	close(client.Send)
	if len(h.Rooms[client.Collection]) == 0 {
		delete(h.Rooms, client.Collection)
	}
	return true
}

// dropToken closes the connections opened with a logged out session token.
func (h *Hub) dropToken(token string) {
	h.mu.Lock()
	var dropped []*Client
	for _, clients := range h.Rooms {
		for client := range clients {
			if client.Token == token {
				dropped = append(dropped, client)
			}
		}
	}
	h.mu.Unlock()

	rooms := map[state.Collection]bool{}
	for _, client := range dropped {
		if h.remove(client) {
			rooms[client.Collection] = true
		}
	}
	for c := range rooms {
		h.broadcastPresenceUpdate(c)
	}
	if len(dropped) > 0 {
		logger.Sugar.Infof("Closed %d socket(s) of a logged out session", len(dropped))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, clients := range h.Rooms {
		for client := range clients {
			close(client.Send)
		}
		delete(h.Rooms, c)
	}
}

func (h *Hub) snapshot(c state.Collection, admin bool) ([]byte, error) {
	var items any
	switch c {
	case state.Documents:
		items = h.source.ListDocuments()
	default:
		items = h.source.ListWritings(admin)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: SnapshotType, Collection: string(c), Payload: payload})
}

func (h *Hub) broadcastSnapshot(c state.Collection) {
	h.mu.Lock()
	clientsToSend := make([]*Client, 0, len(h.Rooms[c]))
	for client := range h.Rooms[c] {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	// At most two variants exist: what admins see and what viewers see.
	payloads := map[bool][]byte{}
	for _, client := range clientsToSend {
		payload, ok := payloads[client.Admin]
		if !ok {
			var err error
			payload, err = h.snapshot(c, client.Admin)
			if err != nil {
				logger.Sugar.Errorf("Error building %s snapshot: %v", c, err)
				return
			}
			payloads[client.Admin] = payload
		}

		select {
		case client.Send <- payload:
		default:
			// The client is lagging; drop it rather than block the hub.
			logger.Sugar.Warnf("Client send buffer full on %s. Dropping client.", c)
			if h.remove(client) {
				client.Conn.Close()
			}
		}
	}
}

func (h *Hub) broadcastPresenceUpdate(c state.Collection) {
	h.mu.Lock()
	clientsToSend := make([]*Client, 0, len(h.Rooms[c]))
	for client := range h.Rooms[c] {
		clientsToSend = append(clientsToSend, client)
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, _ := json.Marshal(Presence{Viewers: len(clientsToSend)})
	msg, err := json.Marshal(WSMessage{Type: PresenceUpdateType, Collection: string(c), Payload: payload})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	for _, client := range clientsToSend {
		select {
		case client.Send <- msg:
		default:
			logger.Sugar.Warnf("Client send buffer was full during presence update on %s.", c)
		}
	}
}

// ViewerCount returns how many clients are watching c.
func (h *Hub) ViewerCount(c state.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[c])
}
