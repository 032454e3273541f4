package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-widget/internal/models"
	"chat-widget/internal/observability"
)

// Hub maintains active websocket connections per room.
type Hub struct {
	rooms    map[int]map[*websocket.Conn]bool
	connInfo map[int]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int]map[*websocket.Conn]bool),
		connInfo: make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(roomID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	if _, ok := h.connInfo[roomID]; !ok {
		h.connInfo[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[roomID][conn] = info
}

// RemoveClient removes a room websocket connection.
func (h *Hub) RemoveClient(roomID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if infos, ok := h.connInfo[roomID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, roomID)
		}
	}
}

// BroadcastMessage pushes a newly created message to all clients in a room.
func (h *Hub) BroadcastMessage(roomID int, msg models.Message) {
	h.broadcast(roomID, models.ChatEvent{Type: models.EventMessage, Message: &msg})
}

// BroadcastEdit pushes the full updated messages to all clients in a room.
func (h *Hub) BroadcastEdit(roomID int, msgs []models.Message) {
	h.broadcast(roomID, models.ChatEvent{Type: models.EventEdit, Messages: msgs})
}

// BroadcastDelete notifies clients that a message was soft-deleted.
func (h *Hub) BroadcastDelete(roomID int, messageID int) {
	h.broadcast(roomID, models.ChatEvent{Type: models.EventDelete, MessageID: messageID})
}

// BroadcastRestore pushes a restored message, full content included, so
// clients can repopulate placeholder bodies.
func (h *Hub) BroadcastRestore(roomID int, msg models.Message) {
	h.broadcast(roomID, models.ChatEvent{Type: models.EventRestore, Message: &msg})
}

func (h *Hub) broadcast(roomID int, event models.ChatEvent) {
	h.mu.RLock()
	conns := h.rooms[roomID]
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(roomID, conn)
			h.publishWSError(roomID, conn, err)
		}
	}
	observability.IncWSEvent("room", event.Type)
}

func (h *Hub) publishWSError(roomID int, conn *websocket.Conn, err error) {
	h.mu.RLock()
	infos, ok := h.connInfo[roomID]
	var info ConnInfo
	if ok {
		info, ok = infos[conn]
	}
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "room",
			"resource_id": roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("room", "ws_error")
}
