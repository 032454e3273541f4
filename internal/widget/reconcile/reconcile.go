// Package reconcile applies remote lifecycle events (edit, delete, restore)
// onto already-rendered nodes. It never changes window membership; a mid that
// is not rendered is ignored, and re-delivered events converge to the same
// view state.
package reconcile

import (
	"fmt"

	"chat-widget/internal/models"
	"chat-widget/internal/observability"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/stream"
	"chat-widget/internal/widget/view"
)

// Reconciler patches rendered nodes in place, refreshing only the named
// regions an event affects so handlers bound elsewhere on the node survive.
type Reconciler struct {
	container *view.Container
	templates render.TemplateRenderer
	bus       *hooks.Bus
	viewer    models.ViewerContext
}

// NewReconciler wires a reconciler for a container.
func NewReconciler(container *view.Container, templates render.TemplateRenderer, bus *hooks.Bus, viewer models.ViewerContext) *Reconciler {
	return &Reconciler{
		container: container,
		templates: templates,
		bus:       bus,
		viewer:    viewer,
	}
}

// HandleEdited applies an edit event. The payload carries full updated
// records; the last applied edit wins. Reply previews quoting an edited mid
// are refreshed from the new body.
func (r *Reconciler) HandleEdited(msgs []models.Message) error {
	observability.IncReconcileEvent("edit")
	updated := make([]int, 0, len(msgs))
	for _, msg := range msgs {
		node := r.container.NodeByMID(msg.ID)
		if node == nil {
			continue
		}

		data := render.MessageData{Message: msg, IsAdminOrGlobalMod: r.viewer.IsModerator}
		body, err := r.templates.Render(render.TemplateMessageBody, data)
		if err != nil {
			return fmt.Errorf("render edited body of %d: %w", msg.ID, err)
		}
		edited, err := r.templates.Render(render.TemplateMessageEdited, data)
		if err != nil {
			return fmt.Errorf("render edited mark of %d: %w", msg.ID, err)
		}

		// A deleted message keeps its placeholder for non-authors even
		// if an edit event arrives out of order.
		if !node.HasClass(view.ClassDeleted) || msg.IsSelf(r.viewer.UserID) {
			node.SetRegion(view.RegionBody, body)
		}
		node.SetRegion(view.RegionEdited, edited)
		r.updatePreviews(msg.ID, func(p *view.ReplyPreview) {
			p.Content = body
		})
		updated = append(updated, msg.ID)
	}

	if len(updated) > 0 {
		r.bus.EmitMessagesAddedToView(hooks.MessagesAddedToView{RoomID: r.container.RoomID, MIDs: updated})
	}
	return nil
}

// HandleDeleted marks a rendered message deleted. Non-authors see a
// placeholder body; the author keeps the content visible under the deleted
// styling. The node stays in the window.
func (r *Reconciler) HandleDeleted(mid int) {
	observability.IncReconcileEvent("delete")
	node := r.container.NodeByMID(mid)
	if node == nil {
		return
	}
	node.SetClass(view.ClassDeleted, true)
	if node.FromUID != r.viewer.UserID {
		node.SetRegion(view.RegionBody, stream.DeletedPlaceholder)
	}
	r.updatePreviews(mid, func(p *view.ReplyPreview) {
		p.Deleted = true
		if p.FromUID != r.viewer.UserID {
			p.Content = stream.DeletedPlaceholder
		}
	})
}

// HandleRestored undoes a delete. The payload carries the full record so
// non-authors, who only had the placeholder, get the body back. The author's
// body was never blanked and is left untouched.
func (r *Reconciler) HandleRestored(msg models.Message) error {
	observability.IncReconcileEvent("restore")
	node := r.container.NodeByMID(msg.ID)
	if node == nil {
		return nil
	}

	body, err := r.templates.Render(render.TemplateMessageBody, render.MessageData{
		Message:            msg,
		IsAdminOrGlobalMod: r.viewer.IsModerator,
	})
	if err != nil {
		return fmt.Errorf("render restored body of %d: %w", msg.ID, err)
	}

	node.SetClass(view.ClassDeleted, false)
	if node.FromUID != r.viewer.UserID {
		node.SetRegion(view.RegionBody, body)
	}
	r.updatePreviews(msg.ID, func(p *view.ReplyPreview) {
		p.Deleted = false
		if p.FromUID != r.viewer.UserID {
			p.Content = body
		}
	})
	return nil
}

// updatePreviews applies fn to every reply preview quoting mid: the ones
// embedded in rendered nodes and the one staged on the composer.
func (r *Reconciler) updatePreviews(mid int, fn func(*view.ReplyPreview)) {
	for _, node := range r.container.Nodes() {
		if node.Parent != nil && node.Parent.MID == mid {
			fn(node.Parent)
		}
	}
	if staged := r.container.StagedReply; staged != nil && staged.MID == mid {
		fn(staged)
	}
}
