package models

import "time"

// Message represents a chat message in a room.
type Message struct {
	ID          int        `db:"id" json:"mid"`
	RoomID      int        `db:"room_id" json:"roomId"`
	FromUID     int        `db:"from_uid" json:"fromuid"`
	DisplayName string     `db:"display_name" json:"displayname"`
	Content     string     `db:"content" json:"content"`
	ReplyToMID  *int       `db:"reply_to_mid" json:"toMid,omitempty"`
	ForwardMID  *int       `db:"forward_mid" json:"forwardMid,omitempty"`
	Deleted     bool       `db:"deleted" json:"deleted"`
	System      bool       `db:"system" json:"system"`
	EditedAt    *time.Time `db:"edited_at" json:"editedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"timestamp"`
}

// IsSelf reports whether the message was authored by the given viewer.
func (m Message) IsSelf(viewerUID int) bool {
	return m.FromUID == viewerUID
}

// Push event names delivered over the websocket channel.
const (
	EventMessage = "chats.message"
	EventEdit    = "chats.edit"
	EventDelete  = "chats.delete"
	EventRestore = "chats.restore"
)

// ChatEvent is broadcasted through websockets.
type ChatEvent struct {
	Type      string    `json:"type"`
	Message   *Message  `json:"message,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
	MessageID int       `json:"message_id,omitempty"`
}
