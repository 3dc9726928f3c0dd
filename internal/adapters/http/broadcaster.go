// Package http is the illustrative transport façade spec §6 names as "not
// mandated by the core": it translates wire requests into the Dialogue
// Manager's single process(...) entry point and back, grounded on the
// teacher's internal/adapters/http package (same router library, same
// per-conversation websocket fan-out shape).
package http

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Broadcaster fans a session's turn replies out to every subscribed
// websocket connection, grounded on the teacher's
// handlers.WebSocketBroadcaster — generalized from "conversation" to
// "session" and from binary msgpack frames to JSON, since this facade has
// no wire format fixed by the spec to match.
type Broadcaster struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{connections: make(map[string]map[*websocket.Conn]struct{})}
}

func (b *Broadcaster) Subscribe(sessionID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connections[sessionID] == nil {
		b.connections[sessionID] = make(map[*websocket.Conn]struct{})
	}
	b.connections[sessionID][conn] = struct{}{}
}

func (b *Broadcaster) Unsubscribe(sessionID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if conns, ok := b.connections[sessionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, sessionID)
		}
	}
}

// Broadcast sends v, JSON-encoded, to every connection subscribed to
// sessionID.
func (b *Broadcaster) Broadcast(sessionID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[http.Broadcaster] failed to encode broadcast payload: %v", err)
		return
	}

	b.mu.RLock()
	conns, ok := b.connections[sessionID]
	if !ok || len(conns) == 0 {
		b.mu.RUnlock()
		return
	}
	targets := make([]*websocket.Conn, 0, len(conns))
	for conn := range conns {
		targets = append(targets, conn)
	}
	b.mu.RUnlock()

	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[http.Broadcaster] write failed, dropping subscriber: %v", err)
			b.Unsubscribe(sessionID, conn)
		}
	}
}
