package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-widget/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	IsMember(ctx context.Context, roomID int, userID int) (bool, error)
	ListRecentRooms(ctx context.Context, userID int) ([]models.RoomSummary, error)
	ListPublicRooms(ctx context.Context) ([]models.RoomSummary, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, name, public, icon, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// IsMember checks whether a user belongs to the room. Public rooms admit everyone.
func (r *RoomRepo) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	var member bool
	err := r.db.GetContext(ctx, &member, `SELECT EXISTS(
        SELECT 1 FROM rooms WHERE id=$1 AND public = TRUE
        UNION
        SELECT 1 FROM room_members WHERE room_id=$1 AND user_id=$2
    )`, roomID, userID)
	return member, err
}

// ListRecentRooms returns the private rooms the user is a member of, newest
// activity first, with a teaser of the latest message and its sender's avatar.
func (r *RoomRepo) ListRecentRooms(ctx context.Context, userID int) ([]models.RoomSummary, error) {
	query := `SELECT r.id, r.name, r.public, r.icon,
            COALESCE(t.content, '') AS teaser,
            COALESCE(t.avatar, '') AS avatar
        FROM rooms r
        JOIN room_members rm ON rm.room_id = r.id AND rm.user_id = $1
        LEFT JOIN LATERAL (
            SELECT m.content, COALESCE(s.avatar, '') AS avatar, m.created_at
            FROM messages m
            LEFT JOIN room_members s ON s.room_id = m.room_id AND s.user_id = m.from_uid
            WHERE m.room_id = r.id AND m.deleted = FALSE
            ORDER BY m.created_at DESC
            LIMIT 1
        ) t ON TRUE
        WHERE r.public = FALSE
        ORDER BY t.created_at DESC NULLS LAST, r.id ASC`
	var rooms []models.RoomSummary
	err := r.db.SelectContext(ctx, &rooms, query, userID)
	return rooms, err
}

// ListPublicRooms returns all public rooms ordered by name.
func (r *RoomRepo) ListPublicRooms(ctx context.Context) ([]models.RoomSummary, error) {
	var rooms []models.RoomSummary
	err := r.db.SelectContext(ctx, &rooms, `SELECT id, name, public, icon, '' AS teaser, '' AS avatar
        FROM rooms WHERE public = TRUE ORDER BY name ASC`)
	return rooms, err
}
