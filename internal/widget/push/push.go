// Package push is the widget's push-channel boundary: a stream of
// server-originated chat events, delivered at-least-once and in no
// guaranteed order.
package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"chat-widget/internal/models"
)

// Channel delivers push events until closed.
type Channel interface {
	Events() <-chan models.ChatEvent
	Close() error
}

// WebsocketChannel reads push events off a websocket connection.
type WebsocketChannel struct {
	conn   *websocket.Conn
	events chan models.ChatEvent
}

// Dial connects the push channel for a room.
func Dial(ctx context.Context, url string, header http.Header) (*WebsocketChannel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := &WebsocketChannel{
		conn:   conn,
		events: make(chan models.ChatEvent, 16),
	}
	go ch.readLoop()
	return ch, nil
}

func (ch *WebsocketChannel) readLoop() {
	defer close(ch.events)
	for {
		_, payload, err := ch.conn.ReadMessage()
		if err != nil {
			return
		}
		var event models.ChatEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("push: dropping undecodable event: %v", err)
			continue
		}
		ch.events <- event
	}
}

// Events returns the event stream. The channel closes when the connection
// drops or Close is called.
func (ch *WebsocketChannel) Events() <-chan models.ChatEvent {
	return ch.events
}

// Close tears the connection down.
func (ch *WebsocketChannel) Close() error {
	return ch.conn.Close()
}
