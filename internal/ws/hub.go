package ws

import (
	"sort"
	"sync"

	"livepoll/internal/protocol"
	"livepoll/pkg/logger"

	"go.uber.org/zap"
)

// Hub maintains the room index and fans events out to room members. Room
// membership is keyed by user id: a user counts once per poll no matter how
// many sockets they hold, and the newest socket wins delivery.
type Hub struct {
	registry *Registry
	logger   *logger.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewHub(registry *Registry, l *logger.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   l,
		rooms:    make(map[string]map[string]*Client),
	}
}

// Register adds a freshly accepted connection.
func (h *Hub) Register(c *Client) {
	h.registry.Register(c)
}

// ClientCount returns the number of live connections on this instance.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// Join subscribes the connection to a poll's room. Rejoining with the same
// user is a no-op on the member set but refreshes the delivery mapping.
// Returns false if the connection was concurrently reclaimed.
func (h *Hub) Join(c *Client, pollID, userID string) bool {
	prevPoll, prevUser, ok := h.registry.Subscription(c.ID)
	if !ok {
		return false
	}
	if prevPoll != "" && prevPoll != pollID {
		h.Leave(c)
	} else if prevPoll == pollID && prevUser != userID {
		h.dropMember(prevPoll, prevUser, c)
	}

	if !h.registry.SetSubscription(c.ID, pollID, userID) {
		return false
	}

	h.mu.Lock()
	room, ok := h.rooms[pollID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[pollID] = room
	}
	room[userID] = c
	h.mu.Unlock()

	// A reclamation racing this join may have removed the registry entry
	// after the subscription update but before the room insert; it found no
	// membership to unwind, so unwind it here or the dead client haunts the
	// room forever.
	if _, _, ok := h.registry.Subscription(c.ID); !ok {
		h.dropMember(pollID, userID, c)
		return false
	}

	h.broadcastPresence(pollID)
	return true
}

// Leave unsubscribes the connection from its current room, if any.
func (h *Hub) Leave(c *Client) {
	pollID, userID, ok := h.registry.Subscription(c.ID)
	if !ok || pollID == "" {
		return
	}
	h.registry.ClearSubscription(c.ID)
	if h.dropMember(pollID, userID, c) {
		h.broadcastPresence(pollID)
	}
}

// Unregister unwinds room membership and removes the connection. The room
// leave happens before the registry entry is gone so no observer sees a
// stale presence count for a connection that no longer exists.
func (h *Hub) Unregister(c *Client) {
	pollID, userID, ok := h.registry.Subscription(c.ID)
	if ok && pollID != "" {
		h.registry.ClearSubscription(c.ID)
		if h.dropMember(pollID, userID, c) {
			h.broadcastPresence(pollID)
		}
	}
	h.registry.Remove(c.ID)
	c.Close()
}

// Reclaim force-closes a connection that missed its heartbeat or could not
// accept a delivery.
func (h *Hub) Reclaim(c *Client, reason string) {
	h.logger.Infof("reclaiming connection %s: %s", c.ID, reason)
	h.Unregister(c)
}

// dropMember removes the user from the room set if this client still backs
// the membership. A rejoin from a newer socket must not be evicted by the
// older socket's teardown.
func (h *Hub) dropMember(pollID, userID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[pollID]
	if !ok {
		return false
	}
	if current, ok := room[userID]; !ok || current != c {
		return false
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(h.rooms, pollID)
	}
	return true
}

// RoomMembers returns the distinct user ids currently in a poll's room.
func (h *Hub) RoomMembers(pollID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[pollID]
	users := make([]string, 0, len(room))
	for userID := range room {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// snapshotClients copies the room's delivery set so a concurrent leave
// during fan-out cannot corrupt the iteration.
func (h *Hub) snapshotClients(pollID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[pollID]
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	return clients
}

// Broadcast delivers a payload to every connection in the poll's room.
// Delivery is fire-and-forget per connection: a connection that cannot take
// the frame is logged and scheduled for reclamation, and the remaining
// members still receive the event.
func (h *Hub) Broadcast(pollID string, payload []byte) {
	for _, c := range h.snapshotClients(pollID) {
		if err := c.SendMessage(payload); err != nil {
			h.logger.Logger.Warn("dropping connection after failed delivery",
				zap.String("conn_id", c.ID),
				zap.String("poll_id", pollID),
				zap.Error(err))
			go h.Reclaim(c, "delivery failure")
		}
	}
}

func (h *Hub) broadcastPresence(pollID string) {
	users := h.RoomMembers(pollID)
	h.Broadcast(pollID, protocol.Encode(protocol.NewActiveUsersMessage(pollID, users)))
}

// Shutdown closes every connection. Used on server stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0)
	for _, room := range h.rooms {
		for _, c := range room {
			clients = append(clients, c)
		}
	}
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		h.registry.Remove(c.ID)
		c.Close()
	}
}
