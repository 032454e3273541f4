// Package forward implements the forward-message dropdown: a hover-driven
// room picker over one message, with at most one dropdown open at a time.
package forward

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"chat-widget/internal/models"
	"chat-widget/internal/observability"
	"chat-widget/internal/widget/api"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/notify"
	"chat-widget/internal/widget/view"
)

// ForwardedBody is the placeholder content a forwarded message is created
// with; the origin is carried by the forwarded-message reference.
const ForwardedBody = "(Forwarded Message)"

// State of the dropdown session.
type State int

const (
	Closed State = iota
	Opening
	OpenLoaded
	OpenEmpty
)

// Session is one open (or opening) dropdown over a message.
type Session struct {
	MID    int
	State  State
	Filter string

	// rooms is the candidate snapshot taken when the dropdown opened;
	// filtering never refetches.
	rooms    []models.RoomSummary
	filtered []models.RoomSummary
}

// Rooms returns the candidates matching the current filter.
func (s *Session) Rooms() []models.RoomSummary {
	return s.filtered
}

// Manager drives the dropdown lifecycle for a room's widget.
type Manager struct {
	transport api.Transport
	notifier  notify.Notifier
	bus       *hooks.Bus
	container *view.Container

	// Hover timings. Fields so tests can shrink them.
	OpenDelay          time.Duration
	MessageCloseDelay  time.Duration
	DropdownCloseDelay time.Duration

	mu         sync.Mutex
	session    *Session
	openTimers map[int]*time.Timer
	closeTimer *time.Timer
}

// NewManager wires a dropdown manager for a container.
func NewManager(transport api.Transport, notifier notify.Notifier, bus *hooks.Bus, container *view.Container) *Manager {
	return &Manager{
		transport:          transport,
		notifier:           notifier,
		bus:                bus,
		container:          container,
		OpenDelay:          250 * time.Millisecond,
		MessageCloseDelay:  300 * time.Millisecond,
		DropdownCloseDelay: 200 * time.Millisecond,
		openTimers:         make(map[int]*time.Timer),
	}
}

// Session returns the current dropdown session, nil when closed.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// PointerEnterMessage arms the hover-open timer for a message. Re-entering
// the message a dropdown is open over cancels its pending close.
func (m *Manager) PointerEnterMessage(ctx context.Context, mid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.MID == mid {
		m.cancelCloseLocked()
		return
	}
	if m.openTimers[mid] != nil {
		return
	}
	m.openTimers[mid] = time.AfterFunc(m.OpenDelay, func() {
		m.openFromHover(ctx, mid)
	})
}

// PointerLeaveMessage cancels a pending hover-open, or arms the close timer
// when the dropdown is open over this message.
func (m *Manager) PointerLeaveMessage(mid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.openTimers[mid]; t != nil {
		t.Stop()
		delete(m.openTimers, mid)
	}
	if m.session != nil && m.session.MID == mid {
		m.armCloseLocked(m.MessageCloseDelay)
	}
}

// PointerEnterDropdown cancels the pending close while the pointer is over
// the dropdown itself.
func (m *Manager) PointerEnterDropdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCloseLocked()
}

// PointerLeaveDropdown arms the close timer.
func (m *Manager) PointerLeaveDropdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.armCloseLocked(m.DropdownCloseDelay)
	}
}

// ClickTrigger toggles the dropdown: a click on the open message closes it,
// a click anywhere else opens it there immediately.
func (m *Manager) ClickTrigger(ctx context.Context, mid int) {
	m.mu.Lock()
	if m.session != nil && m.session.MID == mid {
		m.closeLocked()
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	observability.IncForwardOpen("click")
	m.open(ctx, mid)
}

// Filter narrows the candidate list by name, case-insensitively, against the
// snapshot taken at open time.
func (m *Manager) Filter(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	m.session.Filter = query
	needle := strings.ToLower(query)
	filtered := make([]models.RoomSummary, 0, len(m.session.rooms))
	for _, room := range m.session.rooms {
		if needle == "" || strings.Contains(strings.ToLower(room.RoomName), needle) {
			filtered = append(filtered, room)
		}
	}
	m.session.filtered = filtered
}

// Select closes the dropdown and forwards the message it was open over to
// the chosen room.
func (m *Manager) Select(ctx context.Context, toRoomID int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	mid := m.session.MID
	m.closeLocked()
	m.mu.Unlock()

	return m.Forward(ctx, mid, toRoomID)
}

// Forward creates the placeholder message in the destination room, carrying
// the forwarded mid.
func (m *Manager) Forward(ctx context.Context, mid, toRoomID int) error {
	m.notifier.Notify(notify.Notice{
		ID:       notify.NoticeIDForwarding,
		Title:    "Forwarding message",
		Severity: notify.SeverityInfo,
		Timeout:  2 * time.Second,
	})

	body := map[string]any{"message": ForwardedBody, "forwardMid": mid}
	if err := m.transport.Post(ctx, fmt.Sprintf("/chats/%d", toRoomID), body, nil); err != nil {
		m.notifyForwardError(err)
		return err
	}

	m.bus.EmitMessageForwarded(hooks.MessageForwarded{
		MessageID:  mid,
		FromRoomID: m.container.RoomID,
		ToRoomID:   toRoomID,
	})
	return nil
}

// notifyForwardError routes a failed forward the same way the composer routes
// a failed send: the unconfirmed-identity precondition gets its dedicated
// warning, everything else the generic error banner.
func (m *Manager) notifyForwardError(err error) {
	if api.IsEmailNotConfirmed(err) {
		m.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDEmailConfirmWarning,
			Title:    "Email not confirmed",
			Message:  "Confirm your email address before sending chat messages.",
			Severity: notify.SeverityWarning,
			Timeout:  10 * time.Second,
		})
		return
	}
	m.notifier.Notify(notify.Notice{
		ID:       notify.NoticeIDSendError,
		Title:    "Unable to forward",
		Message:  api.ErrorMessage(err),
		Severity: notify.SeverityDanger,
		Timeout:  10 * time.Second,
	})
}

// Close tears the dropdown down immediately.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Shutdown stops every pending timer. Called when the widget unmounts.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for mid, t := range m.openTimers {
		t.Stop()
		delete(m.openTimers, mid)
	}
	m.closeLocked()
}

func (m *Manager) openFromHover(ctx context.Context, mid int) {
	m.mu.Lock()
	if m.openTimers[mid] == nil {
		// Cancelled between firing and acquiring the lock.
		m.mu.Unlock()
		return
	}
	delete(m.openTimers, mid)
	m.mu.Unlock()

	observability.IncForwardOpen("hover")
	m.open(ctx, mid)
}

// open fetches the room candidates and installs the session. The fetch runs
// outside the lock; a session change while it was in flight discards the
// result.
func (m *Manager) open(ctx context.Context, mid int) {
	m.mu.Lock()
	if !m.container.Mounted() {
		m.mu.Unlock()
		return
	}
	m.closeLocked()
	m.session = &Session{MID: mid, State: Opening}
	m.mu.Unlock()

	var resp struct {
		Rooms       []models.RoomSummary `json:"rooms"`
		PublicRooms []models.RoomSummary `json:"publicRooms"`
	}
	err := m.transport.Get(ctx, "/chats", &resp)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || m.session.MID != mid || m.session.State != Opening {
		return
	}
	if err != nil {
		m.session = nil
		m.notifier.Notify(notify.Notice{
			ID:       notify.NoticeIDSendError,
			Title:    "Failed to load chats",
			Message:  api.ErrorMessage(err),
			Severity: notify.SeverityDanger,
			Timeout:  10 * time.Second,
		})
		return
	}

	rooms := m.candidates(resp.Rooms, resp.PublicRooms)
	if len(rooms) == 0 {
		m.session.State = OpenEmpty
		return
	}
	m.session.State = OpenLoaded
	m.session.rooms = rooms
	m.session.filtered = rooms
}

// candidates merges recent and public rooms, dropping the current room and
// duplicates while keeping recent-first order.
func (m *Manager) candidates(recent, public []models.RoomSummary) []models.RoomSummary {
	seen := make(map[int]bool)
	out := make([]models.RoomSummary, 0, len(recent)+len(public))
	for _, room := range append(append([]models.RoomSummary{}, recent...), public...) {
		if room.RoomID == m.container.RoomID || seen[room.RoomID] {
			continue
		}
		seen[room.RoomID] = true
		out = append(out, room)
	}
	return out
}

func (m *Manager) armCloseLocked(delay time.Duration) {
	m.cancelCloseLocked()
	m.closeTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.closeLocked()
	})
}

func (m *Manager) cancelCloseLocked() {
	if m.closeTimer != nil {
		m.closeTimer.Stop()
		m.closeTimer = nil
	}
}

func (m *Manager) closeLocked() {
	m.cancelCloseLocked()
	m.session = nil
}
