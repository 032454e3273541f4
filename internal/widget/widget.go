// Package widget assembles the chat widget for one room: the view window,
// message stream renderer, push-event reconciler, composer bridge and
// forward dropdown, behind a single lock.
package widget

import (
	"context"
	"fmt"
	"log"
	"sync"

	"chat-widget/internal/models"
	"chat-widget/internal/telemetry"
	"chat-widget/internal/widget/api"
	"chat-widget/internal/widget/audit"
	"chat-widget/internal/widget/composer"
	"chat-widget/internal/widget/forward"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/notify"
	"chat-widget/internal/widget/push"
	"chat-widget/internal/widget/reconcile"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/stream"
	"chat-widget/internal/widget/view"
)

// Config assembles a widget. Transport is required; the other collaborators
// default to the stock implementations when nil. Push is optional: without
// it the widget renders only what the host feeds it.
type Config struct {
	RoomID    int
	Viewer    models.ViewerContext
	Transport api.Transport
	Templates render.TemplateRenderer
	Notifier  notify.Notifier
	Confirmer notify.Confirmer
	Images    stream.ImageWaiter
	Push      push.Channel

	// Audit, when set, mirrors sends, edits and forwards onto the AMQP
	// audit stream.
	Audit *telemetry.AuditEmitter
}

// Widget is the per-room chat surface. All view mutation happens under one
// lock; push events, timer callbacks and host calls serialize through it.
type Widget struct {
	mu sync.Mutex

	container  *view.Container
	scroll     *stream.ScrollController
	renderer   *stream.Renderer
	reconciler *reconcile.Reconciler
	composer   *composer.Bridge
	forward    *forward.Manager
	bus        *hooks.Bus

	transport api.Transport
	pushCh    push.Channel
	done      chan struct{}
}

// New assembles a widget and, when a push channel is configured, starts
// consuming it.
func New(cfg Config) (*Widget, error) {
	if cfg.Templates == nil {
		templates, err := render.NewHTMLRenderer()
		if err != nil {
			return nil, err
		}
		cfg.Templates = templates
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewAlertCenter()
	}
	if cfg.Confirmer == nil {
		cfg.Confirmer = notify.StaticConfirmer(true)
	}
	if cfg.Images == nil {
		cfg.Images = stream.ImmediateImages{}
	}

	container := view.NewContainer(cfg.RoomID)
	scroll := stream.NewScrollController()
	bus := hooks.NewBus()

	w := &Widget{
		container:  container,
		scroll:     scroll,
		renderer:   stream.NewRenderer(container, cfg.Templates, scroll, cfg.Images, bus, cfg.Viewer),
		reconciler: reconcile.NewReconciler(container, cfg.Templates, bus, cfg.Viewer),
		composer:   composer.NewBridge(cfg.Transport, cfg.Templates, cfg.Notifier, cfg.Confirmer, container, scroll, bus, cfg.Viewer),
		forward:    forward.NewManager(cfg.Transport, cfg.Notifier, bus, container),
		bus:        bus,
		transport:  cfg.Transport,
		pushCh:     cfg.Push,
		done:       make(chan struct{}),
	}

	audit.Bind(bus, cfg.Audit, cfg.Viewer.UserID)

	if w.pushCh != nil {
		go w.consumePush()
	}
	return w, nil
}

// Hooks returns the widget's event bus.
func (w *Widget) Hooks() *hooks.Bus {
	return w.bus
}

// Forward returns the forward dropdown manager. It carries its own lock, so
// pointer events go to it directly.
func (w *Widget) Forward() *forward.Manager {
	return w.forward
}

// OpenForwardDropdown opens the forward dropdown over a message, as an
// explicit trigger click does.
func (w *Widget) OpenForwardDropdown(ctx context.Context, mid int) {
	w.forward.ClickTrigger(ctx, mid)
}

// Append renders one message onto the stream tail.
func (w *Widget) Append(msg models.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.container.Mounted() {
		return nil
	}
	return w.renderer.Append(msg)
}

// AppendBatch renders a historical load.
func (w *Widget) AppendBatch(msgs []models.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.container.Mounted() {
		return nil
	}
	return w.renderer.AppendBatch(msgs)
}

// LoadHistory fetches the room's recent messages and renders them.
func (w *Widget) LoadHistory(ctx context.Context) error {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	path := fmt.Sprintf("/chats/%d/messages", w.container.RoomID)
	if err := w.transport.Get(ctx, path, &resp); err != nil {
		return err
	}
	return w.AppendBatch(resp.Messages)
}

// Input returns the composer input state.
func (w *Widget) Input() composer.InputState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.Input()
}

// SetInput replaces the composer input value.
func (w *Widget) SetInput(value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.composer.SetInput(value)
}

// Send submits the composer content.
func (w *Widget) Send(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.Send(ctx)
}

// PrepReply stages a reply to a rendered message.
func (w *Widget) PrepReply(mid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.composer.PrepReply(mid)
}

// CancelReply clears the staged reply.
func (w *Widget) CancelReply() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.composer.CancelReply()
}

// PrepEdit opens the inline editor over a message.
func (w *Widget) PrepEdit(ctx context.Context, mid int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.PrepEdit(ctx, mid)
}

// SetEditorValue replaces an open editor's draft.
func (w *Widget) SetEditorValue(mid int, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.composer.SetEditorValue(mid, value)
}

// SaveEdit submits an open editor's draft.
func (w *Widget) SaveEdit(ctx context.Context, mid int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.SaveEdit(ctx, mid)
}

// CancelEdit closes an open editor, discarding the draft.
func (w *Widget) CancelEdit(mid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.composer.CancelEdit(mid)
}

// Delete confirms and deletes a message.
func (w *Widget) Delete(ctx context.Context, mid int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.Delete(ctx, mid)
}

// Restore undoes a delete.
func (w *Widget) Restore(ctx context.Context, mid int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer.Restore(ctx, mid)
}

// HandleScroll mirrors a host scroll event into the view. A manual scroll
// counts as interaction, so the fade-in marker drops from rendered nodes.
func (w *Widget) HandleScroll(scrollTop int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scroll.HandleScroll(w.container, scrollTop) {
		w.renderer.ClearNewMarkers()
	}
}

// SetViewportMetrics mirrors the host surface's measured heights.
func (w *Widget) SetViewportMetrics(scrollHeight, viewportHeight int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.container.ScrollHeight = scrollHeight
	w.container.ViewportHeight = viewportHeight
}

// ScrollToBottom pins the view to the stream tail.
func (w *Widget) ScrollToBottom() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scroll.ScrollToBottom(w.container)
}

// Container exposes the view model for the host to mirror. Callers must not
// mutate it.
func (w *Widget) Container() *view.Container {
	return w.container
}

// Close unmounts the widget: the push channel closes, pending dropdown
// timers stop, and late completions become no-ops.
func (w *Widget) Close() error {
	w.mu.Lock()
	w.container.Unmount()
	w.mu.Unlock()

	w.forward.Shutdown()
	if w.pushCh != nil {
		err := w.pushCh.Close()
		<-w.done
		return err
	}
	close(w.done)
	return nil
}

// consumePush dispatches remote events into the renderer and reconciler.
// Each event takes the widget lock and re-checks mounted, since teardown can
// race a delivered event.
func (w *Widget) consumePush() {
	defer close(w.done)
	for ev := range w.pushCh.Events() {
		w.mu.Lock()
		if !w.container.Mounted() {
			w.mu.Unlock()
			continue
		}
		w.dispatch(ev)
		w.mu.Unlock()
	}
}

func (w *Widget) dispatch(ev models.ChatEvent) {
	switch ev.Type {
	case models.EventMessage:
		if ev.Message == nil || ev.Message.RoomID != w.container.RoomID {
			return
		}
		if err := w.renderer.Append(*ev.Message); err != nil {
			log.Printf("widget: append mid=%d: %v", ev.Message.ID, err)
		}
	case models.EventEdit:
		if err := w.reconciler.HandleEdited(ev.Messages); err != nil {
			log.Printf("widget: apply edit: %v", err)
		}
	case models.EventDelete:
		w.reconciler.HandleDeleted(ev.MessageID)
	case models.EventRestore:
		if ev.Message == nil {
			return
		}
		if err := w.reconciler.HandleRestored(*ev.Message); err != nil {
			log.Printf("widget: apply restore mid=%d: %v", ev.Message.ID, err)
		}
	default:
		log.Printf("widget: unknown event type %q", ev.Type)
	}
}
