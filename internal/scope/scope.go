// Package scope broadcasts drained waveform frames to websocket clients
// so the pulse stream can be inspected from a browser.
package scope

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// FrameRecord is one drained buffer half as delivered to scope clients.
type FrameRecord struct {
	Seq         uint64   `json:"seq"`
	T           int64    `json:"t"`
	Frame       string   `json:"frame"`
	Codes       []uint32 `json:"codes"`
	R           uint8    `json:"r"`
	G           uint8    `json:"g"`
	B           uint8    `json:"b"`
	Latch       bool     `json:"latch"`
	RemainingUS int64    `json:"remaining_us"`
}

// Hub tracks connected scope clients.
type Hub struct {
	mu      sync.Mutex
	seq     uint64
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: map[*websocket.Conn]bool{}}
}

// HandleWS upgrades the request and registers a client. A reader
// goroutine reaps the connection when the peer goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("scope client connected")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast stamps rec with a sequence number and sends it to every
// client, dropping writes that miss the deadline.
func (h *Hub) Broadcast(rec FrameRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	rec.Seq = h.seq
	rec.T = time.Now().UnixNano()
	b, _ := json.Marshal(rec)
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
