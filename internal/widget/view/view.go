// Package view models the widget's rendered surface as an explicit in-memory
// tree. The renderer and reconciler consult and mutate this model; the host
// application mirrors it into whatever presentation layer it owns.
package view

import "time"

// Named node regions holding independently replaceable markup.
const (
	RegionBody     = "body"
	RegionEdited   = "edited"
	RegionControls = "controls"
)

// Classes toggled on nodes.
const (
	ClassNew     = "new"
	ClassDeleted = "deleted"
	ClassEditing = "editing"
)

// ReplyPreview is a denormalized projection of a quoted message's current
// body. It appears inside a node that replies to another message, and on the
// composer while a reply is staged. It is looked up by the quoted mid and
// must track the quoted message through edit/delete/restore.
type ReplyPreview struct {
	MID         int
	FromUID     int
	DisplayName string
	Content     string
	Deleted     bool
}

// Node is one rendered message in the stream: the presentation projection of
// a Message. Exactly one node exists per displayed mid.
type Node struct {
	MID         int
	FromUID     int
	DisplayName string
	Timestamp   time.Time
	NewSet      bool
	VisualIndex int
	Markup      string
	Parent      *ReplyPreview

	classes map[string]bool
	regions map[string]string
}

// NewNode creates an empty node for a message.
func NewNode(mid, fromUID int, timestamp time.Time) *Node {
	return &Node{
		MID:       mid,
		FromUID:   fromUID,
		Timestamp: timestamp,
		classes:   make(map[string]bool),
		regions:   make(map[string]string),
	}
}

// SetClass toggles a class. Setting the same value twice is a no-op.
func (n *Node) SetClass(name string, on bool) {
	if on {
		n.classes[name] = true
		return
	}
	delete(n.classes, name)
}

// HasClass reports whether a class is set.
func (n *Node) HasClass(name string) bool {
	return n.classes[name]
}

// SetRegion replaces one named region's markup without touching the rest of
// the node, so event bindings on other regions survive.
func (n *Node) SetRegion(region, markup string) {
	n.regions[region] = markup
}

// Region returns a named region's markup.
func (n *Node) Region(region string) string {
	return n.regions[region]
}

// Container owns the bounded ordered sequence of rendered nodes (the view
// window) plus the scroll state of the stream element.
type Container struct {
	RoomID int

	nodes []*Node
	byMID map[int]*Node

	// Scroll metrics, in pixels, mirrored from the host surface.
	ScrollTop      int
	ScrollHeight   int
	ViewportHeight int

	// ScrollAlertVisible is the "new messages below" indicator.
	ScrollAlertVisible bool

	// StagedReply is the composer's reply-to preview, when a reply is staged.
	StagedReply *ReplyPreview

	ignoreNextScroll bool
	mounted          bool
}

// NewContainer creates a mounted, empty container for a room.
func NewContainer(roomID int) *Container {
	return &Container{
		RoomID:  roomID,
		byMID:   make(map[int]*Node),
		mounted: true,
	}
}

// Mounted reports whether the view is still attached. Stale timer and fetch
// completions must check this before mutating anything.
func (c *Container) Mounted() bool {
	return c.mounted
}

// Unmount marks the view torn down.
func (c *Container) Unmount() {
	c.mounted = false
}

// Append attaches a node as the new last child.
func (c *Container) Append(n *Node) {
	c.nodes = append(c.nodes, n)
	c.byMID[n.MID] = n
}

// Len returns the number of rendered nodes.
func (c *Container) Len() int {
	return len(c.nodes)
}

// Last returns the last rendered node, or nil when the view is empty. This
// is the record the grouping policy consults; the presentation layer is
// never queried.
func (c *Container) Last() *Node {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[len(c.nodes)-1]
}

// NodeByMID looks a node up by message id, never by position.
func (c *Container) NodeByMID(mid int) *Node {
	return c.byMID[mid]
}

// Nodes returns the window in order. Callers must not reorder it.
func (c *Container) Nodes() []*Node {
	return c.nodes
}

// EvictFront removes the count oldest nodes and returns them.
func (c *Container) EvictFront(count int) []*Node {
	if count <= 0 {
		return nil
	}
	if count > len(c.nodes) {
		count = len(c.nodes)
	}
	evicted := c.nodes[:count]
	c.nodes = c.nodes[count:]
	for _, n := range evicted {
		delete(c.byMID, n.MID)
	}
	return evicted
}

// MaxScrollTop is the scroll offset that pins the view to the bottom.
func (c *Container) MaxScrollTop() int {
	max := c.ScrollHeight - c.ViewportHeight
	if max < 0 {
		return 0
	}
	return max
}

// DistanceToBottom is how far the viewport bottom is from the content bottom.
func (c *Container) DistanceToBottom() int {
	return c.ScrollHeight - (c.ScrollTop + c.ViewportHeight)
}

// SetIgnoreNextScroll arms the scroll-loop guard: the next scroll event is
// treated as programmatic and does not toggle the scroll-up alert.
func (c *Container) SetIgnoreNextScroll() {
	c.ignoreNextScroll = true
}

// ConsumeIgnoreNextScroll reports and clears the guard.
func (c *Container) ConsumeIgnoreNextScroll() bool {
	was := c.ignoreNextScroll
	c.ignoreNextScroll = false
	return was
}
