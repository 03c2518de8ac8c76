package server

import (
	"context"
	"sync/atomic"
)

// hubMsg pairs a payload with whether it becomes the retained state
// replayed to clients that connect later.
type hubMsg struct {
	payload any
	retain  bool
}

// Hub fans broadcast messages out to every connected websocket
// subscriber. The clients map is owned by the Run loop; handlers and
// pumps talk to it only through channels.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan hubMsg
	done       chan struct{}

	clients   map[*client]struct{}
	latest    any
	connected atomic.Int64

	logf func(format string, args ...any)
}

func newHub(logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan hubMsg, 64),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		logf:       logf,
	}
}

// Run owns the client set until ctx is canceled, then closes every
// client queue and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]struct{})
			h.connected.Store(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connected.Store(int64(len(h.clients)))
			if h.latest != nil {
				h.deliver(c, h.latest)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.connected.Store(int64(len(h.clients)))
			}

		case m := <-h.broadcast:
			if m.retain {
				h.latest = m.payload
			}
			for c := range h.clients {
				h.deliver(c, m.payload)
			}
			h.connected.Store(int64(len(h.clients)))
		}
	}
}

// deliver queues msg without ever blocking the hub. A client whose
// queue is full is disconnected; a stalled reader must not stall the
// rest.
func (h *Hub) deliver(c *client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
		h.logf("[WARN] websocket client too slow, dropping")
	}
}

// Broadcast queues msg for every connected client. Safe after
// shutdown; the message is dropped.
func (h *Hub) Broadcast(msg any) {
	h.send(hubMsg{payload: msg})
}

// BroadcastState queues msg and retains it as the greeting for clients
// that connect later.
func (h *Hub) BroadcastState(msg any) {
	h.send(hubMsg{payload: msg, retain: true})
}

func (h *Hub) send(m hubMsg) {
	select {
	case h.broadcast <- m:
	case <-h.done:
	}
}

// Clients reports the connected client count.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}
