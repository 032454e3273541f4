// Package notify defines the user-visible banner and confirmation-dialog
// collaborator boundaries.
package notify

import (
	"log"
	"sync"
	"time"
)

// Severity of a notice banner.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Well-known notice ids. Re-raising an id refreshes the existing banner
// instead of stacking a new one.
const (
	NoticeIDSendError           = "chat_spam_error"
	NoticeIDForwarding          = "forwarding_message"
	NoticeIDEmailConfirmWarning = "email_confirm_warning"
)

// Notice is one user-visible banner.
type Notice struct {
	ID       string
	Title    string
	Message  string
	Severity Severity
	Timeout  time.Duration
}

// Notifier raises notices, de-duplicated by id.
type Notifier interface {
	Notify(n Notice)
}

// Confirmer asks the user a yes/no question before destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// AlertCenter is the stock Notifier: it keeps the latest notice per id and
// logs each raise.
type AlertCenter struct {
	mu     sync.Mutex
	active map[string]Notice
}

// NewAlertCenter creates an empty AlertCenter.
func NewAlertCenter() *AlertCenter {
	return &AlertCenter{active: make(map[string]Notice)}
}

// Notify raises or refreshes a notice.
func (a *AlertCenter) Notify(n Notice) {
	a.mu.Lock()
	a.active[n.ID] = n
	a.mu.Unlock()
	log.Printf("alert id=%s severity=%s title=%q message=%q", n.ID, n.Severity, n.Title, n.Message)
}

// Active returns the current notices, one per id.
func (a *AlertCenter) Active() []Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	notices := make([]Notice, 0, len(a.active))
	for _, n := range a.active {
		notices = append(notices, n)
	}
	return notices
}

// Get returns the active notice for an id.
func (a *AlertCenter) Get(id string) (Notice, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.active[id]
	return n, ok
}

// Dismiss removes a notice.
func (a *AlertCenter) Dismiss(id string) {
	a.mu.Lock()
	delete(a.active, id)
	a.mu.Unlock()
}

// StaticConfirmer answers every confirmation the same way.
type StaticConfirmer bool

// Confirm returns the configured answer.
func (s StaticConfirmer) Confirm(prompt string) bool {
	return bool(s)
}
