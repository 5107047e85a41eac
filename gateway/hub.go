package gateway

import (
	"context"
	"sync"

	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/game"
	"github.com/rs/zerolog/log"
)

type binding struct {
	roomID string
	handle string
}

// Hub tracks the connections attached to this instance and the room and handle each one
// is bound to, and delivers room notifications to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	bindings map[string]binding
	rooms    map[string]map[string]struct{}
	latest   map[string]*domain.Room
}

func NewHub() *Hub {
	return &Hub{
		clients:  map[string]*Client{},
		bindings: map[string]binding{},
		rooms:    map[string]map[string]struct{}{},
		latest:   map[string]*domain.Room{},
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// Unregister forgets the connection and returns the binding it held, if any.
func (h *Hub) Unregister(connID string) (binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	return h.unbindLocked(connID)
}

// Bind attaches a registered connection to a seat.
func (h *Hub) Bind(connID, roomID, handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; ok {
		h.bindLocked(connID, binding{roomID: roomID, handle: handle})
	}
}

func (h *Hub) Unbind(connID string) (binding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unbindLocked(connID)
}

func (h *Hub) Binding(connID string) (binding, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bindings[connID]
	return b, ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection with code.
func (h *Hub) CloseAll(code string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Close(code)
	}
}

// Publish delivers n to the local connections. It serves as the game.Publisher when no
// broker connects instances.
func (h *Hub) Publish(_ context.Context, n game.Notification) error {
	h.Deliver(n)
	return nil
}

// Deliver sends, in order, the playerAssigned of n to the assigned connection, the event
// of n to every connection of the room and a roomState rendered for each recipient.
// When a newer room was already delivered, the state frames render that newer room and
// connections with nothing new to learn get none.
func (h *Hub) Deliver(n game.Notification) {
	if n.Room == nil {
		return
	}

	var (
		toClose  []*Client
		assigned *Client
	)
	h.mu.Lock()
	if a := n.Assigned; a != nil {
		if old, ok := h.clients[a.Replaced]; ok && a.Replaced != a.ConnectionID {
			h.unbindLocked(a.Replaced)
			toClose = append(toClose, old)
		}
		if c, ok := h.clients[a.ConnectionID]; ok {
			h.bindLocked(a.ConnectionID, binding{roomID: n.RoomID, handle: a.Handle})
			if err := c.Send(assignedMessage(n.RoomID, a.Handle)); err != nil {
				toClose = append(toClose, h.dropLocked(c, err))
			} else {
				assigned = c
			}
		}
	}

	// an outdated notification still carries its event, but only the newest room is rendered
	fresh := h.freshLocked(n)
	room := h.latest[n.RoomID]

	var event []byte
	if n.Event != nil {
		event = encode(ServerMessage{Event: *n.Event})
	}
	for connID := range h.rooms[n.RoomID] {
		c := h.clients[connID]
		handle := h.bindings[connID].handle
		if p, ok := room.Players[handle]; !ok || p.ConnectionID != connID {
			// the seat was released or taken over by another connection
			h.unbindLocked(connID)
			continue
		}
		if event != nil {
			if err := c.Send(event); err != nil {
				toClose = append(toClose, h.dropLocked(c, err))
				continue
			}
		}
		if !fresh && event == nil && c != assigned {
			continue
		}
		if err := c.Send(stateMessage(game.NewRoomView(room, handle))); err != nil {
			toClose = append(toClose, h.dropLocked(c, err))
		}
	}
	h.mu.Unlock()

	closeClients(toClose, CloseReplaced)
}

func closeClients(clients []*Client, code string) {
	for _, c := range clients {
		c.Close(code)
	}
}

// freshLocked records the room of n as the latest one and reports whether it is not
// older than what was delivered before. A room recreated under the same id starts over.
func (h *Hub) freshLocked(n game.Notification) bool {
	last, ok := h.latest[n.RoomID]
	if ok && last.CreatedAt.Equal(n.Room.CreatedAt) && n.Room.Version < last.Version {
		return false
	}
	h.latest[n.RoomID] = n.Room
	return true
}

// dropLocked unbinds a client that cannot keep up and returns it for closing.
func (h *Hub) dropLocked(c *Client, err error) *Client {
	log.Warn().Err(err).Str("conn", c.id).Msg("dropping client")
	h.unbindLocked(c.id)
	c.Close(CloseSlowConsumer)
	return c
}

func (h *Hub) bindLocked(connID string, b binding) {
	if prev, ok := h.bindings[connID]; ok && prev.roomID != b.roomID {
		h.unbindLocked(connID)
	}
	h.bindings[connID] = b
	members, ok := h.rooms[b.roomID]
	if !ok {
		members = map[string]struct{}{}
		h.rooms[b.roomID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) unbindLocked(connID string) (binding, bool) {
	b, ok := h.bindings[connID]
	if !ok {
		return binding{}, false
	}
	delete(h.bindings, connID)
	if members, ok := h.rooms[b.roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, b.roomID)
			delete(h.latest, b.roomID)
		}
	}
	return b, true
}
