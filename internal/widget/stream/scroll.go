package stream

import "chat-widget/internal/widget/view"

// Default pixel tolerances. Auto-follow is tight; the scroll-up alert is
// looser so browsing slightly above the tail does not raise it.
const (
	DefaultAtBottomThreshold = 100
	DefaultAlertThreshold    = 300
)

// ScrollController tracks whether the viewport follows the stream tail and
// decides when to pin it back down.
type ScrollController struct {
	AtBottomThreshold int
	AlertThreshold    int
}

// NewScrollController returns a controller with the default tolerances.
func NewScrollController() *ScrollController {
	return &ScrollController{
		AtBottomThreshold: DefaultAtBottomThreshold,
		AlertThreshold:    DefaultAlertThreshold,
	}
}

// IsAtBottom reports whether the viewport is within the follow tolerance of
// the content bottom. A nil container is never at bottom.
func (s *ScrollController) IsAtBottom(c *view.Container) bool {
	if c == nil {
		return false
	}
	return c.DistanceToBottom() < s.AtBottomThreshold
}

// ShouldAutoScroll reports whether the view should pin to the bottom after a
// render. A viewer always follows their own sent messages, even when
// scrolled up.
func (s *ScrollController) ShouldAutoScroll(c *view.Container, appendedBySelf bool) bool {
	return appendedBySelf || s.IsAtBottom(c)
}

// ScrollToBottom pins the scroll offset to the maximum, hides the scroll-up
// alert, and arms the one-shot guard so the resulting scroll event is not
// misread as a manual scroll-away.
func (s *ScrollController) ScrollToBottom(c *view.Container) {
	if c == nil {
		return
	}
	c.SetIgnoreNextScroll()
	c.ScrollTop = c.MaxScrollTop()
	c.ScrollAlertVisible = false
}

// ToggleScrollAlert shows the "new messages below" indicator when the
// viewport is further than the alert tolerance from the bottom.
func (s *ScrollController) ToggleScrollAlert(c *view.Container) {
	if c == nil {
		return
	}
	c.ScrollAlertVisible = c.DistanceToBottom() >= s.AlertThreshold
}

// HandleScroll processes a scroll event from the host surface and reports
// whether it was a manual scroll. A scroll caused by ScrollToBottom consumes
// the guard and changes nothing else.
func (s *ScrollController) HandleScroll(c *view.Container, scrollTop int) bool {
	if c == nil {
		return false
	}
	c.ScrollTop = scrollTop
	if c.ConsumeIgnoreNextScroll() {
		return false
	}
	s.ToggleScrollAlert(c)
	return true
}
