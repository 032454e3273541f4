package models

import "time"

// Room represents a conversation. Public rooms are joinable by anyone and
// carry an icon instead of a member avatar.
type Room struct {
	ID        int       `db:"id" json:"roomId"`
	Name      string    `db:"name" json:"roomName"`
	Public    bool      `db:"public" json:"public"`
	Icon      string    `db:"icon" json:"icon,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RoomSummary is the API-friendly view of a room for the room list, carrying
// a teaser of the latest message when one exists.
type RoomSummary struct {
	RoomID   int    `db:"id" json:"roomId"`
	RoomName string `db:"name" json:"roomName"`
	Public   bool   `db:"public" json:"public"`
	Icon     string `db:"icon" json:"icon,omitempty"`
	Teaser   string `db:"teaser" json:"teaser,omitempty"`
	Avatar   string `db:"avatar" json:"avatar,omitempty"`
}

// ViewerContext identifies the user on whose behalf the widget operates.
type ViewerContext struct {
	UserID      int
	DisplayName string
	IsModerator bool
}
