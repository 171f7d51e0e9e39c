// Package wsfeed fans the event bus out to external WebSocket
// subscribers. This is explicitly a boundary consumer, not part of the
// core: spec.md §1 lists the WebSocket/SSE transports as out of scope
// for the clearing-house itself, so wsfeed only ever reads events the
// dispatcher already published through eventbus.Bus.Subscribe and never
// touches the dispatcher, orderbook, or ledger directly.
//
// Grounded on the teacher's ws/hub.go Hub: a register/unregister/
// broadcast channel set fanning a single source of truth out to many
// gorilla/websocket clients, generalized here from raw market ticks to
// marshaled eventbus.Event envelopes.
package wsfeed

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/epic1st/clearinghouse/auth"
	"github.com/epic1st/clearinghouse/eventbus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected WebSocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub bridges one eventbus.Stream to any number of WebSocket clients.
type Hub struct {
	bus         *eventbus.Bus
	authService *auth.Service

	register   chan *client
	unregister chan *client
	clients    map[*client]bool
}

// NewHub constructs a Hub reading from bus. authService, if non-nil,
// gates connections behind a valid bearer token.
func NewHub(bus *eventbus.Bus, authService *auth.Service) *Hub {
	return &Hub{
		bus:         bus,
		authService: authService,
		register:    make(chan *client),
		unregister:  make(chan *client),
		clients:     make(map[*client]bool),
	}
}

// Run drains the bus's event stream and the hub's register/unregister
// channels until stream is closed.
func (h *Hub) Run() {
	stream := h.bus.Subscribe()
	events := make(chan eventbus.Event, 256)
	go func() {
		defer close(events)
		for {
			ev, ok := stream.Next()
			if !ok {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			log.Printf("[wsfeed] client connected, total=%d", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow client: drop rather than block the fan-out loop.
				}
			}
		}
	}
}

// ServeWs upgrades r into a WebSocket connection and attaches it to the
// hub, authenticating via bearer token first when authService is set.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.authService != nil {
		if _, err := h.authenticate(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wsfeed] upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256)}
	h.register <- c

	go func() {
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	go func() {
		defer func() {
			h.unregister <- c
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) authenticate(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	return h.authService.Authenticate(token)
}
