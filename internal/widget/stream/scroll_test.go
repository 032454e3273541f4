package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-widget/internal/widget/view"
)

func scrolledContainer(scrollTop int) *view.Container {
	c := view.NewContainer(1)
	c.ScrollHeight = 2000
	c.ViewportHeight = 500
	c.ScrollTop = scrollTop
	return c
}

func TestIsAtBottomTolerance(t *testing.T) {
	s := NewScrollController()

	assert.True(t, s.IsAtBottom(scrolledContainer(1500)))  // pinned
	assert.True(t, s.IsAtBottom(scrolledContainer(1401)))  // 99px away
	assert.False(t, s.IsAtBottom(scrolledContainer(1400))) // exactly 100px away
	assert.False(t, s.IsAtBottom(nil))
}

func TestShouldAutoScrollFollowsOwnMessages(t *testing.T) {
	s := NewScrollController()
	c := scrolledContainer(0) // far above the tail

	assert.False(t, s.ShouldAutoScroll(c, false))
	assert.True(t, s.ShouldAutoScroll(c, true))
}

func TestScrollToBottomPinsAndArmsGuard(t *testing.T) {
	s := NewScrollController()
	c := scrolledContainer(0)
	c.ScrollAlertVisible = true

	s.ScrollToBottom(c)

	assert.Equal(t, 1500, c.ScrollTop)
	assert.False(t, c.ScrollAlertVisible)

	// The scroll event caused by the pin must not re-raise the alert.
	s.HandleScroll(c, 1500)
	assert.False(t, c.ScrollAlertVisible)
}

func TestHandleScrollTogglesAlert(t *testing.T) {
	s := NewScrollController()
	c := scrolledContainer(1500)

	s.HandleScroll(c, 1200) // 300px from bottom
	assert.True(t, c.ScrollAlertVisible)

	s.HandleScroll(c, 1201) // 299px from bottom
	assert.False(t, c.ScrollAlertVisible)
}
