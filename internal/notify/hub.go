package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/surveypesa/backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

// TokenVerifier authenticates the ops feed; satisfied by the auth service.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.JWTClaims, error)
}

// Hub pushes ledger events to connected operator consoles over WebSocket.
// A slow or dead consumer is dropped rather than ever back-pressuring the
// ledger.
type Hub struct {
	auth TokenVerifier

	mu      sync.Mutex
	clients map[*websocket.Conn]chan domain.Event
}

// NewHub creates an empty hub. SetVerifier must be called before Handle
// accepts connections; the verifier is wired late because the auth service
// itself publishes through the hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan domain.Event),
	}
}

// SetVerifier installs the token verifier used to authenticate clients.
func (h *Hub) SetVerifier(auth TokenVerifier) {
	h.auth = auth
}

// Notify implements Notifier. Sends are non-blocking; a full client buffer
// means the event is dropped for that client.
func (h *Hub) Notify(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- event:
		default:
			log.Printf("ops feed: dropping event for slow client %s", conn.RemoteAddr())
		}
	}
}

// Handle upgrades HTTP to WebSocket for the admin ops feed.
// URL: /ws/ops?token=JWT_TOKEN
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if h.auth == nil || token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.Role != "admin" {
		http.Error(w, "admin access required", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ch := make(chan domain.Event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	log.Printf("ops feed connected: %s", conn.RemoteAddr())
	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan domain.Event) {
	for event := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.drop(conn)
			return
		}
	}
}

// readLoop discards inbound frames; its only job is detecting disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	conn.Close()
}
