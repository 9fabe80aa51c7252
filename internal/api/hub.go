package api

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
)

// ServerMessage is the wire envelope for every server→client event.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub tracks live connections and their room membership, and fans
// outbound events out to them. It knows nothing about game rules.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	for code, members := range h.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, code)
			}
		}
	}
}

func (h *Hub) join(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]*client)
		h.rooms[code] = members
	}
	members[c.id] = c
}

// dropRoom forgets a destroyed room's membership without closing the
// connections; clients may go on to join another room.
func (h *Hub) dropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// SendTo delivers one event to a single connection.
func (h *Hub) SendTo(connID, name string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.enqueue(marshal(name, payload))
	}
}

// Broadcast delivers one event to every member of a room.
func (h *Hub) Broadcast(code, name string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[code]))
	for _, c := range h.rooms[code] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	if len(members) == 0 {
		return
	}

	data := marshal(name, payload)
	iter.ForEach(members, func(cPtr **client) {
		(*cPtr).enqueue(data)
	})
}

func marshal(name string, payload any) []byte {
	data, err := json.Marshal(ServerMessage{Type: name, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("marshal event")
		return nil
	}
	return data
}
