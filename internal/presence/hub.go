package presence

import (
	"log"
	"sync"
)

// Conn is the write side of one push connection.  *websocket.Conn from
// gorilla/websocket satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// sendBufSize is the per-connection event buffer.  A connection whose
// buffer fills up is dropped rather than awaited.
const sendBufSize = 32

// client pairs a connection with its outbound queue.  A dedicated writer
// goroutine drains the queue, so a stalled peer blocks only its own
// writer and never the hub.
type client struct {
	conn Conn
	send chan Event
}

// Hub exclusively owns the live connection set, the per-user last-event
// cache and the derived online list.  All mutation goes through its
// methods under a single mutex; actual socket writes happen on the
// per-client writer goroutines, which also keeps gorilla's one-writer
// rule.
type Hub struct {
	mu      sync.Mutex
	clients map[Conn]*client
	last    map[uint64]Event
	online  *OnlineList

	// replay controls whether a freshly registered connection receives
	// the cached last event of every known user before live traffic.
	replay bool
}

// NewHub creates an empty hub.  When replayOnConnect is true, Register
// queues each user's cached last event to the new connection.
func NewHub(replayOnConnect bool) *Hub {
	return &Hub{
		clients: make(map[Conn]*client),
		last:    make(map[uint64]Event),
		online:  NewOnlineList(),
		replay:  replayOnConnect,
	}
}

// Register adds a connection to the live set, starts its writer and, when
// replay is enabled, queues the cached last event per user so the client
// can rebuild the online list without waiting for new state changes.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl := &client{conn: c, send: make(chan Event, sendBufSize)}
	h.clients[c] = cl
	go h.writeLoop(cl)
	if !h.replay {
		return
	}
	for _, ev := range h.last {
		if !h.enqueueLocked(cl, ev) {
			return
		}
	}
}

// Unregister removes a connection and closes it.  It is idempotent and is
// called on explicit close as well as on any transport error.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// Broadcast queues the event for every registered connection.  Delivery
// is best-effort and fire-and-forget: the enqueue never blocks, and a
// connection too slow to drain its buffer is dropped so one stalled peer
// cannot hold up the others or the hub itself.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online.Apply(ev)
	for _, cl := range h.clients {
		h.enqueueLocked(cl, ev)
	}
}

// RecordLastEvent caches the user's most recent event, one entry per user.
func (h *Hub) RecordLastEvent(userID uint64, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[userID] = ev
}

// ClearLastEvent removes the user's cache entry, typically on logout.
func (h *Hub) ClearLastEvent(userID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, userID)
}

// LastEvent returns the cached event for a user, if any.
func (h *Hub) LastEvent(userID uint64) (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev, ok := h.last[userID]
	return ev, ok
}

// Online returns a snapshot of the online list in arrival order.
func (h *Hub) Online() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online.Events()
}

// ConnCount reports the number of live connections.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drains the hub on shutdown: every connection is closed and the
// caches are emptied.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.last = make(map[uint64]Event)
	h.online = NewOnlineList()
}

// writeLoop drains one client's queue onto its socket.  A write error
// unregisters the connection; the loop ends when the queue is closed by
// dropLocked.
func (h *Hub) writeLoop(cl *client) {
	for ev := range cl.send {
		if err := cl.conn.WriteJSON(ev); err != nil {
			log.Printf("presence: dropping connection after failed send: %v", err)
			h.Unregister(cl.conn)
			return
		}
	}
}

// enqueueLocked queues an event without blocking.  A full buffer means
// the peer stopped draining; the connection is dropped.  Callers hold the
// mutex.  Reports whether the client is still registered afterwards.
func (h *Hub) enqueueLocked(cl *client, ev Event) bool {
	if _, ok := h.clients[cl.conn]; !ok {
		return false
	}
	select {
	case cl.send <- ev:
		return true
	default:
		log.Printf("presence: dropping connection with full send buffer")
		h.dropLocked(cl.conn)
		return false
	}
}

// dropLocked removes a connection, closes its queue and the socket;
// callers hold the mutex.  Removing an absent connection is a no-op.
// Closing the socket also unblocks a writer stuck mid-write.
func (h *Hub) dropLocked(c Conn) {
	cl, ok := h.clients[c]
	if !ok {
		return
	}
	delete(h.clients, c)
	close(cl.send)
	_ = c.Close()
}
