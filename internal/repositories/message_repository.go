package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-widget/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID int, senderID int, displayName string, content string, replyToMID *int, forwardMID *int) (models.Message, error)
	GetRoomMessages(ctx context.Context, roomID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	UpdateMessageContent(ctx context.Context, messageID int, content string) (models.Message, error)
	SetMessageDeleted(ctx context.Context, messageID int, deleted bool) (models.Message, error)
}

const messageColumns = `id, room_id, from_uid, display_name, content, reply_to_mid, forward_mid, deleted, system, edited_at, created_at`

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message, optionally carrying a reply or forward reference.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID int, senderID int, displayName string, content string, replyToMID *int, forwardMID *int) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room_id, from_uid, display_name, content, reply_to_mid, forward_mid)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns,
		roomID, senderID, displayName, content, replyToMID, forwardMID).StructScan(&msg)
	return msg, err
}

// GetRoomMessages returns the room history in server timestamp order.
func (r *MessageRepo) GetRoomMessages(ctx context.Context, roomID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+`
        FROM messages WHERE room_id=$1 ORDER BY created_at ASC, id ASC`, roomID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateMessageContent replaces the message body and stamps edited_at.
func (r *MessageRepo) UpdateMessageContent(ctx context.Context, messageID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET content=$2, edited_at=NOW()
        WHERE id=$1 RETURNING `+messageColumns, messageID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SetMessageDeleted flips the soft-delete flag. The row is never removed;
// restore is the same statement with deleted=false.
func (r *MessageRepo) SetMessageDeleted(ctx context.Context, messageID int, deleted bool) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET deleted=$2
        WHERE id=$1 RETURNING `+messageColumns, messageID, deleted).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
