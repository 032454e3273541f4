// Package composer bridges the input box to the backend: sending with
// optimistic clearing, staging replies, inline editing, and the
// delete/restore controls.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat-widget/internal/models"
	"chat-widget/internal/widget/api"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/notify"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/stream"
	"chat-widget/internal/widget/view"
)

// DefaultMaxLength caps the composer input.
const DefaultMaxLength = 1000

// InputState mirrors the composer input box. Height counts lines; Remaining
// is the character budget left under MaxLength.
type InputState struct {
	Value     string
	Height    int
	MaxLength int
	Remaining int
}

func (s *InputState) set(value string) {
	s.Value = value
	s.Height = strings.Count(value, "\n") + 1
	s.Remaining = s.MaxLength - len([]rune(value))
}

// InlineEditor is the in-place editing surface over one rendered message.
type InlineEditor struct {
	MID    int
	Value  string
	Markup string
}

// Bridge owns the composer state for one room's widget.
type Bridge struct {
	transport api.Transport
	templates render.TemplateRenderer
	notifier  notify.Notifier
	confirmer notify.Confirmer
	container *view.Container
	scroll    *stream.ScrollController
	bus       *hooks.Bus
	viewer    models.ViewerContext

	input   InputState
	editors map[int]*InlineEditor
}

// NewBridge wires a composer for a container.
func NewBridge(transport api.Transport, templates render.TemplateRenderer, notifier notify.Notifier, confirmer notify.Confirmer, container *view.Container, scroll *stream.ScrollController, bus *hooks.Bus, viewer models.ViewerContext) *Bridge {
	b := &Bridge{
		transport: transport,
		templates: templates,
		notifier:  notifier,
		confirmer: confirmer,
		container: container,
		scroll:    scroll,
		bus:       bus,
		viewer:    viewer,
		editors:   make(map[int]*InlineEditor),
	}
	b.input.MaxLength = DefaultMaxLength
	b.input.set("")
	return b
}

// Input returns the current input box state.
func (b *Bridge) Input() InputState {
	return b.input
}

// SetInput replaces the input value, as typing does.
func (b *Bridge) SetInput(value string) {
	b.input.set(value)
}

// Editor returns the inline editor open over a message, if any.
func (b *Bridge) Editor(mid int) *InlineEditor {
	return b.editors[mid]
}

// Send submits the composer content. A whitespace-only value is silently
// dropped. The input clears optimistically before the request and is
// restored verbatim on failure, so nothing typed is lost. The rendered echo
// of a successful send arrives through the push channel, not from here.
func (b *Bridge) Send(ctx context.Context) error {
	message := b.input.Value
	if strings.TrimSpace(message) == "" {
		return nil
	}

	var toMID *int
	if staged := b.container.StagedReply; staged != nil {
		mid := staged.MID
		toMID = &mid
	}

	b.input.set("")

	body := map[string]any{"message": message}
	if toMID != nil {
		body["toMid"] = *toMID
	}
	err := b.transport.Post(ctx, fmt.Sprintf("/chats/%d", b.container.RoomID), body, nil)
	if err != nil {
		b.input.set(message)
		b.notifySendError(err)
		return err
	}

	b.container.StagedReply = nil
	b.bus.EmitMessageSent(hooks.MessageSent{RoomID: b.container.RoomID, Message: message})
	return nil
}

// PrepReply stages a reply to a rendered message. The staged preview is the
// same projection the reconciler tracks, so the quote follows later edits.
func (b *Bridge) PrepReply(mid int) {
	node := b.container.NodeByMID(mid)
	if node == nil {
		return
	}
	b.container.StagedReply = &view.ReplyPreview{
		MID:         node.MID,
		FromUID:     node.FromUID,
		DisplayName: node.DisplayName,
		Content:     node.Region(view.RegionBody),
		Deleted:     node.HasClass(view.ClassDeleted),
	}
	if b.scroll.IsAtBottom(b.container) {
		b.scroll.ScrollToBottom(b.container)
	}
}

// CancelReply clears the staged reply.
func (b *Bridge) CancelReply() {
	b.container.StagedReply = nil
}

// PrepEdit fetches the raw (unrendered) content of a message and opens the
// inline editor over its node. Opening an editor that is already open is a
// no-op.
func (b *Bridge) PrepEdit(ctx context.Context, mid int) error {
	if b.editors[mid] != nil {
		return nil
	}
	node := b.container.NodeByMID(mid)
	if node == nil {
		return nil
	}

	var raw struct {
		Content string `json:"content"`
	}
	path := fmt.Sprintf("/chats/%d/messages/%d/raw", b.container.RoomID, mid)
	if err := b.transport.Get(ctx, path, &raw); err != nil {
		b.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDSendError,
			Title:    "Unable to edit",
			Message:  api.ErrorMessage(err),
			Severity: notify.SeverityDanger,
			Timeout:  10 * time.Second,
		})
		return err
	}
	if !b.container.Mounted() {
		return nil
	}

	markup, err := b.templates.Render(render.TemplateInlineEditor, render.EditorData{RawContent: raw.Content})
	if err != nil {
		return fmt.Errorf("render inline editor for %d: %w", mid, err)
	}

	node.SetClass(view.ClassEditing, true)
	b.editors[mid] = &InlineEditor{MID: mid, Value: raw.Content, Markup: markup}
	return nil
}

// SetEditorValue replaces the open editor's draft, as typing does.
func (b *Bridge) SetEditorValue(mid int, value string) {
	if editor := b.editors[mid]; editor != nil {
		editor.Value = value
	}
}

// SaveEdit submits the open editor's draft. On success the editor closes; the
// node body refreshes when the edit event comes back on the push channel. On
// failure the editor stays open with the draft intact.
func (b *Bridge) SaveEdit(ctx context.Context, mid int) error {
	editor := b.editors[mid]
	if editor == nil {
		return nil
	}

	path := fmt.Sprintf("/chats/%d/messages/%d", b.container.RoomID, mid)
	err := b.transport.Put(ctx, path, map[string]any{"message": editor.Value}, nil)
	if err != nil {
		b.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDSendError,
			Title:    "Unable to save edit",
			Message:  api.ErrorMessage(err),
			Severity: notify.SeverityDanger,
			Timeout:  10 * time.Second,
		})
		return err
	}

	value := editor.Value
	b.closeEditor(mid)
	b.bus.EmitMessageEdited(hooks.MessageEdited{RoomID: b.container.RoomID, MID: mid, Message: value})
	return nil
}

// CancelEdit closes the inline editor, discarding the draft.
func (b *Bridge) CancelEdit(mid int) {
	b.closeEditor(mid)
}

// Delete asks for confirmation and then deletes a message. The local node is
// marked immediately; the push event converges everyone else.
func (b *Bridge) Delete(ctx context.Context, mid int) error {
	if !b.confirmer.Confirm("Delete this message?") {
		return nil
	}

	path := fmt.Sprintf("/chats/%d/messages/%d", b.container.RoomID, mid)
	if err := b.transport.Del(ctx, path, nil); err != nil {
		b.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDSendError,
			Title:    "Unable to delete",
			Message:  api.ErrorMessage(err),
			Severity: notify.SeverityDanger,
			Timeout:  10 * time.Second,
		})
		return err
	}

	if node := b.container.NodeByMID(mid); node != nil {
		node.SetClass(view.ClassDeleted, true)
	}
	return nil
}

// Restore undoes a delete. No confirmation: restoring is not destructive.
func (b *Bridge) Restore(ctx context.Context, mid int) error {
	path := fmt.Sprintf("/chats/%d/messages/%d/restore", b.container.RoomID, mid)
	if err := b.transport.Post(ctx, path, nil, nil); err != nil {
		b.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDSendError,
			Title:    "Unable to restore",
			Message:  api.ErrorMessage(err),
			Severity: notify.SeverityDanger,
			Timeout:  10 * time.Second,
		})
		return err
	}

	if node := b.container.NodeByMID(mid); node != nil {
		node.SetClass(view.ClassDeleted, false)
	}
	return nil
}

func (b *Bridge) closeEditor(mid int) {
	delete(b.editors, mid)
	if node := b.container.NodeByMID(mid); node != nil {
		node.SetClass(view.ClassEditing, false)
	}
}

// notifySendError routes a failed send: the unconfirmed-identity
// precondition gets its dedicated warning, everything else the generic
// error banner carrying the server's message.
func (b *Bridge) notifySendError(err error) {
	if api.IsEmailNotConfirmed(err) {
		b.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDEmailConfirmWarning,
			Title:    "Email not confirmed",
			Message:  "Confirm your email address before sending chat messages.",
			Severity: notify.SeverityWarning,
			Timeout:  10 * time.Second,
		})
		return
	}
	b.notifier.Notify(notify.Notice{
		ID:       notify.NoticeIDSendError,
		Title:    "Unable to send",
		Message:  api.ErrorMessage(err),
		Severity: notify.SeverityDanger,
		Timeout:  10 * time.Second,
	})
}
