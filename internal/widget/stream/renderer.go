package stream

import (
	"fmt"
	"sort"

	"chat-widget/internal/models"
	"chat-widget/internal/observability"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/view"
)

// MaxWindowSize caps how many rendered messages the view retains; the oldest
// overflow is evicted regardless of grouping or deleted state.
const MaxWindowSize = 150

// DeletedPlaceholder replaces the body of a deleted message for viewers other
// than its author.
const DeletedPlaceholder = "message deleted"

// ImageWaiter defers a callback until images embedded in freshly rendered
// markup have loaded, since they change layout height and scrolling before
// that undershoots.
type ImageWaiter interface {
	WaitImagesLoaded(markup string, done func())
}

// ImmediateImages treats all markup as image-free and runs callbacks at once.
type ImmediateImages struct{}

func (ImmediateImages) WaitImagesLoaded(markup string, done func()) {
	done()
}

// Renderer turns message records into rendered nodes in the view window.
// It is the only component that changes window membership.
type Renderer struct {
	container *view.Container
	templates render.TemplateRenderer
	scroll    *ScrollController
	images    ImageWaiter
	bus       *hooks.Bus
	viewer    models.ViewerContext
	windowCap int
}

// NewRenderer wires a renderer for a container.
func NewRenderer(container *view.Container, templates render.TemplateRenderer, scroll *ScrollController, images ImageWaiter, bus *hooks.Bus, viewer models.ViewerContext) *Renderer {
	if images == nil {
		images = ImmediateImages{}
	}
	return &Renderer{
		container: container,
		templates: templates,
		scroll:    scroll,
		images:    images,
		bus:       bus,
		viewer:    viewer,
		windowCap: MaxWindowSize,
	}
}

// Append renders one incoming message onto the stream tail. Appending a mid
// that is already rendered is a no-op, so a server echo of an optimistic
// send cannot duplicate a node. Render failure mutates nothing.
func (r *Renderer) Append(msg models.Message) error {
	if r.container.NodeByMID(msg.ID) != nil {
		return nil
	}

	decision := DecideGrouping(r.container.Last(), msg)

	markup, err := r.templates.Render(templateFor(msg), render.MessageData{
		Message:            msg,
		IsAdminOrGlobalMod: r.viewer.IsModerator,
	})
	if err != nil {
		return fmt.Errorf("render message %d: %w", msg.ID, err)
	}

	node, err := r.buildNode(msg, decision, markup)
	if err != nil {
		return err
	}
	node.SetClass(view.ClassNew, true)
	r.container.Append(node)
	observability.IncWidgetRender("single")

	if r.scroll.ShouldAutoScroll(r.container, msg.IsSelf(r.viewer.UserID)) {
		r.images.WaitImagesLoaded(markup, func() {
			if r.container.Mounted() {
				r.scroll.ScrollToBottom(r.container)
			}
		})
	}

	r.evictOverflow()

	r.bus.EmitMessageReceived(hooks.MessageReceived{RoomID: msg.RoomID, MID: msg.ID})
	r.bus.EmitMessagesAddedToView(hooks.MessagesAddedToView{RoomID: msg.RoomID, MIDs: []int{msg.ID}})
	return nil
}

// AppendBatch renders a historical or initial load. Messages are rendered in
// server timestamp order and each one's grouping is recomputed against its
// immediate predecessor in the batch. The batch markup is produced in one
// template call before any mutation.
func (r *Renderer) AppendBatch(msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	ordered := make([]models.Message, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	markup, err := r.templates.Render(render.TemplateMessageBatch, render.BatchData{
		Messages:           ordered,
		IsAdminOrGlobalMod: r.viewer.IsModerator,
	})
	if err != nil {
		return fmt.Errorf("render batch of %d: %w", len(ordered), err)
	}

	// Build every node before mutating the window so a mid-batch failure
	// leaves the view untouched.
	nodes := make([]*view.Node, 0, len(ordered))
	mids := make([]int, 0, len(ordered))
	prev := r.container.Last()
	for _, msg := range ordered {
		if r.container.NodeByMID(msg.ID) != nil {
			continue
		}
		decision := DecideGrouping(prev, msg)
		node, err := r.buildNode(msg, decision, "")
		if err != nil {
			return err
		}
		nodes = append(nodes, node)
		mids = append(mids, msg.ID)
		prev = node
	}
	for _, node := range nodes {
		r.container.Append(node)
		observability.IncWidgetRender("batch")
	}

	if r.scroll.IsAtBottom(r.container) {
		r.images.WaitImagesLoaded(markup, func() {
			if r.container.Mounted() {
				r.scroll.ScrollToBottom(r.container)
			}
		})
	}

	r.evictOverflow()

	if len(mids) > 0 {
		r.bus.EmitMessagesAddedToView(hooks.MessagesAddedToView{RoomID: r.container.RoomID, MIDs: mids})
	}
	return nil
}

// ClearNewMarkers drops the transient fade-in marker from every node.
func (r *Renderer) ClearNewMarkers() {
	for _, node := range r.container.Nodes() {
		node.SetClass(view.ClassNew, false)
	}
}

func (r *Renderer) buildNode(msg models.Message, decision GroupDecision, markup string) (*view.Node, error) {
	node := view.NewNode(msg.ID, msg.FromUID, msg.CreatedAt)
	node.DisplayName = msg.DisplayName
	node.NewSet = decision.NewSet
	node.VisualIndex = decision.VisualIndex
	node.Markup = markup

	data := render.MessageData{Message: msg, IsAdminOrGlobalMod: r.viewer.IsModerator}
	body, err := r.templates.Render(render.TemplateMessageBody, data)
	if err != nil {
		return nil, fmt.Errorf("render body of %d: %w", msg.ID, err)
	}
	edited, err := r.templates.Render(render.TemplateMessageEdited, data)
	if err != nil {
		return nil, fmt.Errorf("render edited mark of %d: %w", msg.ID, err)
	}

	if msg.Deleted {
		node.SetClass(view.ClassDeleted, true)
		if !msg.IsSelf(r.viewer.UserID) {
			body = DeletedPlaceholder
		}
	}
	node.SetRegion(view.RegionBody, body)
	node.SetRegion(view.RegionEdited, edited)

	if msg.ReplyToMID != nil {
		node.Parent = r.replyPreviewFor(*msg.ReplyToMID)
	}
	return node, nil
}

// replyPreviewFor snapshots the quoted message's current body when it is in
// the window. An out-of-window quote keeps only the mid; the reconciler
// still tracks it by id.
func (r *Renderer) replyPreviewFor(mid int) *view.ReplyPreview {
	preview := &view.ReplyPreview{MID: mid}
	if quoted := r.container.NodeByMID(mid); quoted != nil {
		preview.FromUID = quoted.FromUID
		preview.DisplayName = quoted.DisplayName
		preview.Content = quoted.Region(view.RegionBody)
		preview.Deleted = quoted.HasClass(view.ClassDeleted)
	}
	return preview
}

func (r *Renderer) evictOverflow() {
	overflow := r.container.Len() - r.windowCap
	if overflow <= 0 {
		return
	}
	evicted := r.container.EvictFront(overflow)
	observability.AddWidgetEvictions(len(evicted))
	r.ClearNewMarkers()
}

func templateFor(msg models.Message) string {
	if msg.System {
		return render.TemplateSystemMessage
	}
	return render.TemplateSingleMessage
}
