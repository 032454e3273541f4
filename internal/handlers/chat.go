package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-widget/internal/models"
	"chat-widget/internal/repositories"
	"chat-widget/internal/telemetry"
	"chat-widget/internal/ws"
)

// ChatHandler manages room and message endpoints.
type ChatHandler struct {
	roomRepo    repositories.RoomRepository
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. The audit emitter may be nil.
func NewChatHandler(roomRepo repositories.RoomRepository, messageRepo repositories.MessageRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		hub:         hub,
		audit:       audit,
	}
}

// ListRooms returns the viewer's recent rooms plus all public rooms. Recent
// entries carry a teaser of the last message and its sender's avatar.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID := c.GetInt("userID")

	recent, err := h.roomRepo.ListRecentRooms(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	public, err := h.roomRepo.ListPublicRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load public rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": recent, "publicRooms": public})
}

// GetRoomMessages returns the ordered history of a room for batch rendering.
func (h *ChatHandler) GetRoomMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	if !h.requireMember(c, roomID) {
		return
	}

	msgs, err := h.messageRepo.GetRoomMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and broadcasts it. The body may carry a reply
// reference (toMid) or a forward reference (forwardMid).
func (h *ChatHandler) PostMessage(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	if !h.requireMember(c, roomID) {
		return
	}

	var req struct {
		Message    string `json:"message" binding:"required"`
		ToMID      *int   `json:"toMid"`
		ForwardMID *int   `json:"forwardMid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), roomID, userID, c.GetString("displayName"), req.Message, req.ToMID, req.ForwardMID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastMessage(roomID, msg)
	h.emitAudit(c, "INFO", "message created")
	c.JSON(http.StatusCreated, msg)
}

// GetRawMessage returns the unrendered content for the inline editor.
func (h *ChatHandler) GetRawMessage(c *gin.Context) {
	roomID, messageID, ok := roomMessageParams(c)
	if !ok {
		return
	}
	if !h.requireMember(c, roomID) {
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.RoomID != roomID {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": msg.Content})
}

// EditMessage updates a message body and broadcasts a chats.edit event
// carrying the full updated message.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	roomID, messageID, ok := roomMessageParams(c)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	if !h.requireAuthorOrModerator(c, roomID, messageID) {
		return
	}

	msg, err := h.messageRepo.UpdateMessageContent(c.Request.Context(), messageID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}

	h.hub.BroadcastEdit(roomID, []models.Message{msg})
	h.emitAudit(c, "INFO", "message edited")
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message and broadcasts a chats.delete event.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	roomID, messageID, ok := roomMessageParams(c)
	if !ok {
		return
	}
	if !h.requireAuthorOrModerator(c, roomID, messageID) {
		return
	}

	if _, err := h.messageRepo.SetMessageDeleted(c.Request.Context(), messageID, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	h.hub.BroadcastDelete(roomID, messageID)
	h.emitAudit(c, "INFO", "message deleted")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RestoreMessage clears the soft-delete flag and broadcasts a chats.restore
// event carrying the full message so clients can repopulate placeholders.
func (h *ChatHandler) RestoreMessage(c *gin.Context) {
	roomID, messageID, ok := roomMessageParams(c)
	if !ok {
		return
	}
	if !h.requireAuthorOrModerator(c, roomID, messageID) {
		return
	}

	msg, err := h.messageRepo.SetMessageDeleted(c.Request.Context(), messageID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to restore message"})
		return
	}

	h.hub.BroadcastRestore(roomID, msg)
	h.emitAudit(c, "INFO", "message restored")
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) requireMember(c *gin.Context, roomID int) bool {
	userID := c.GetInt("userID")
	member, err := h.roomRepo.IsMember(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return false
	}
	return true
}

func (h *ChatHandler) requireAuthorOrModerator(c *gin.Context, roomID int, messageID int) bool {
	if !h.requireMember(c, roomID) {
		return false
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return false
	}
	if msg.RoomID != roomID {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return false
	}
	if msg.FromUID != c.GetInt("userID") && !c.GetBool("moderator") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the message author"})
		return false
	}
	return true
}
