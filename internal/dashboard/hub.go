// Package dashboard broadcasts cycle-detection events to connected
// websocket clients for a live view of the engine's decisions, adapted
// from the teacher's websocket hub. It is a pure observer: nothing here
// feeds back into internal/cycle.
package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/instagibbs/anticycle/internal/cycle"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboard, no cross-origin concern
	},
}

// Hub maintains the set of active websocket clients and broadcasts
// engine events to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

// NewHub constructs an idle Hub; call Run in its own goroutine to start
// draining the broadcast channel.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans each message out to every
// connected client, dropping any client whose write fails or stalls.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("dashboard: websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades an incoming HTTP request to a websocket connection
// and registers it to receive future broadcasts.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("dashboard: failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	log.Printf("dashboard: client connected, total=%d", len(h.clients))

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("dashboard: client disconnected, total=%d", len(h.clients))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("dashboard: websocket error: %v", err)
				}
				break
			}
		}
	}()
}

// broadcastJSON marshals v and pushes it onto the broadcast channel,
// dropping the message rather than blocking if the channel is full.
func (h *Hub) broadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("dashboard: marshal failed: %v", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		log.Printf("dashboard: broadcast channel full, dropping event")
	}
}

type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CycleDetected broadcasts a UTXO's cycle count crossing a round.
func (h *Hub) CycleDetected(u cycle.UTXO, count uint32) {
	h.broadcastJSON(event{Type: "cycle_detected", Data: map[string]any{
		"utxo":  u.String(),
		"count": count,
	}})
}

// Resubmit broadcasts the outcome of a defensive resubmission attempt.
func (h *Hub) Resubmit(u cycle.UTXO, txid string, ok bool) {
	h.broadcastJSON(event{Type: "resubmit", Data: map[string]any{
		"utxo": u.String(),
		"txid": txid,
		"ok":   ok,
	}})
}

// EpochWipe broadcasts a full cache wipe at a new block tip.
func (h *Hub) EpochWipe(reason string) {
	h.broadcastJSON(event{Type: "epoch_wipe", Data: map[string]any{
		"reason": reason,
	}})
}

// AdmissionRefuse broadcasts a disjointness-check refusal (invariant I5).
func (h *Hub) AdmissionRefuse(u cycle.UTXO, txid string) {
	h.broadcastJSON(event{Type: "admission_refuse", Data: map[string]any{
		"utxo": u.String(),
		"txid": txid,
	}})
}

// Hooks adapts the Hub's broadcast methods into cycle.Hooks.
func (h *Hub) Hooks() cycle.Hooks {
	return cycle.Hooks{
		OnCycleDetected:   h.CycleDetected,
		OnResubmit:        h.Resubmit,
		OnEpochWipe:       h.EpochWipe,
		OnAdmissionRefuse: h.AdmissionRefuse,
	}
}
