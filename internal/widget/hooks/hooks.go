// Package hooks is the widget's typed publish/subscribe surface. The event
// set is fixed; payload shapes are part of the contract so other features can
// subscribe without coupling to the widget internals.
package hooks

import "sync"

// MessageSent fires after a send request succeeds.
type MessageSent struct {
	RoomID  int
	Message string
}

// MessageReceived fires after an incoming message is rendered into the view.
type MessageReceived struct {
	RoomID int
	MID    int
}

// MessageEdited fires after an edit request succeeds.
type MessageEdited struct {
	RoomID  int
	MID     int
	Message string
}

// MessageForwarded fires after a forward request is dispatched.
type MessageForwarded struct {
	MessageID  int
	FromRoomID int
	ToRoomID   int
}

// MessagesAddedToView fires whenever rendered nodes change, so collaborators
// (time-ago labels, image post-processing) can run over the affected mids.
type MessagesAddedToView struct {
	RoomID int
	MIDs   []int
}

// Bus fans events out to subscribers synchronously, in subscription order.
// Subscribers run on the widget goroutine and must not mutate the view.
type Bus struct {
	mu          sync.RWMutex
	onSent      []func(MessageSent)
	onReceived  []func(MessageReceived)
	onEdited    []func(MessageEdited)
	onForwarded []func(MessageForwarded)
	onAdded     []func(MessagesAddedToView)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnMessageSent(fn func(MessageSent)) {
	b.mu.Lock()
	b.onSent = append(b.onSent, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessageReceived(fn func(MessageReceived)) {
	b.mu.Lock()
	b.onReceived = append(b.onReceived, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessageEdited(fn func(MessageEdited)) {
	b.mu.Lock()
	b.onEdited = append(b.onEdited, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessageForwarded(fn func(MessageForwarded)) {
	b.mu.Lock()
	b.onForwarded = append(b.onForwarded, fn)
	b.mu.Unlock()
}

func (b *Bus) OnMessagesAddedToView(fn func(MessagesAddedToView)) {
	b.mu.Lock()
	b.onAdded = append(b.onAdded, fn)
	b.mu.Unlock()
}

func (b *Bus) EmitMessageSent(p MessageSent) {
	b.mu.RLock()
	subs := b.onSent
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(p)
	}
}

func (b *Bus) EmitMessageReceived(p MessageReceived) {
	b.mu.RLock()
	subs := b.onReceived
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(p)
	}
}

func (b *Bus) EmitMessageEdited(p MessageEdited) {
	b.mu.RLock()
	subs := b.onEdited
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(p)
	}
}

func (b *Bus) EmitMessageForwarded(p MessageForwarded) {
	b.mu.RLock()
	subs := b.onForwarded
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(p)
	}
}

func (b *Bus) EmitMessagesAddedToView(p MessagesAddedToView) {
	b.mu.RLock()
	subs := b.onAdded
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(p)
	}
}
