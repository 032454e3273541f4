package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/models"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/view"
)

// fakeTemplates renders every template as "<name>:<mid>" and can be told to
// fail on one template name.
type fakeTemplates struct {
	failOn string
}

func (f fakeTemplates) Render(name string, data any) (string, error) {
	if name == f.failOn {
		return "", fmt.Errorf("boom: %s", name)
	}
	switch v := data.(type) {
	case render.MessageData:
		return fmt.Sprintf("%s:%d", name, v.Message.ID), nil
	case render.BatchData:
		return fmt.Sprintf("%s:%d messages", name, len(v.Messages)), nil
	default:
		return name, nil
	}
}

func streamMsg(id, fromUID int, at time.Time) models.Message {
	return models.Message{ID: id, RoomID: 1, FromUID: fromUID, Content: fmt.Sprintf("m%d", id), CreatedAt: at}
}

func newTestRenderer(t *testing.T, templates render.TemplateRenderer) (*Renderer, *view.Container) {
	t.Helper()
	c := view.NewContainer(1)
	r := NewRenderer(c, templates, NewScrollController(), ImmediateImages{}, hooks.NewBus(), models.ViewerContext{UserID: 9})
	return r, c
}

func TestAppendRendersNode(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	at := time.Now()

	require.NoError(t, r.Append(streamMsg(1, 5, at)))
	require.Equal(t, 1, c.Len())

	node := c.NodeByMID(1)
	require.NotNil(t, node)
	assert.True(t, node.NewSet)
	assert.Equal(t, 0, node.VisualIndex)
	assert.True(t, node.HasClass(view.ClassNew))
	assert.Equal(t, "single-message:1", node.Markup)
	assert.Equal(t, "message-body:1", node.Region(view.RegionBody))
}

func TestAppendDuplicateMIDIsNoop(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	at := time.Now()

	require.NoError(t, r.Append(streamMsg(1, 5, at)))
	// The push echo of an optimistic send carries the same mid.
	require.NoError(t, r.Append(streamMsg(1, 5, at)))
	assert.Equal(t, 1, c.Len())
}

func TestAppendRenderFailureMutatesNothing(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{failOn: render.TemplateSingleMessage})

	err := r.Append(streamMsg(1, 5, time.Now()))
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestAppendEvictsOldestPastWindowCap(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	r.windowCap = 3
	at := time.Now()

	for i := 1; i <= 4; i++ {
		require.NoError(t, r.Append(streamMsg(i, 5, at.Add(time.Duration(i)*time.Second))))
	}

	assert.Equal(t, 3, c.Len())
	assert.Nil(t, c.NodeByMID(1))
	require.NotNil(t, c.NodeByMID(2))

	// Eviction clears the transient marker from the survivors too.
	for _, node := range c.Nodes() {
		assert.False(t, node.HasClass(view.ClassNew), "mid %d", node.MID)
	}
}

func TestAppendSelfMessagePinsToBottom(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	c.ScrollHeight = 2000
	c.ViewportHeight = 500
	c.ScrollTop = 0 // scrolled far up

	require.NoError(t, r.Append(streamMsg(1, 9, time.Now()))) // viewer uid is 9
	assert.Equal(t, c.MaxScrollTop(), c.ScrollTop)
}

func TestAppendDeletedMessageHidesBodyForNonAuthor(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})

	msg := streamMsg(1, 5, time.Now())
	msg.Deleted = true
	require.NoError(t, r.Append(msg))

	node := c.NodeByMID(1)
	require.NotNil(t, node)
	assert.True(t, node.HasClass(view.ClassDeleted))
	assert.Equal(t, DeletedPlaceholder, node.Region(view.RegionBody))
}

func TestAppendReplySnapshotsQuotedBody(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	at := time.Now()

	require.NoError(t, r.Append(streamMsg(1, 5, at)))

	reply := streamMsg(2, 6, at.Add(time.Second))
	toMid := 1
	reply.ReplyToMID = &toMid
	require.NoError(t, r.Append(reply))

	node := c.NodeByMID(2)
	require.NotNil(t, node)
	assert.True(t, node.NewSet)
	require.NotNil(t, node.Parent)
	assert.Equal(t, 1, node.Parent.MID)
	assert.Equal(t, "message-body:1", node.Parent.Content)
}

func TestAppendBatchSortsAndGroups(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	at := time.Now()

	batch := []models.Message{
		streamMsg(3, 5, at.Add(2 * time.Second)),
		streamMsg(1, 5, at),
		streamMsg(2, 5, at.Add(time.Second)),
	}
	require.NoError(t, r.AppendBatch(batch))

	nodes := c.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{nodes[0].MID, nodes[1].MID, nodes[2].MID})
	assert.True(t, nodes[0].NewSet)
	assert.False(t, nodes[1].NewSet)
	assert.False(t, nodes[2].NewSet)
	assert.Equal(t, 2, nodes[2].VisualIndex)
}

func TestAppendBatchRenderFailureMutatesNothing(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{failOn: render.TemplateMessageBatch})

	err := r.AppendBatch([]models.Message{streamMsg(1, 5, time.Now())})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestAppendBatchSkipsRenderedMIDs(t *testing.T) {
	r, c := newTestRenderer(t, fakeTemplates{})
	at := time.Now()

	require.NoError(t, r.Append(streamMsg(1, 5, at)))
	require.NoError(t, r.AppendBatch([]models.Message{streamMsg(1, 5, at), streamMsg(2, 5, at.Add(time.Second))}))
	assert.Equal(t, 2, c.Len())
}

func TestAppendEmitsHooks(t *testing.T) {
	r, _ := newTestRenderer(t, fakeTemplates{})

	var received []hooks.MessageReceived
	var added []hooks.MessagesAddedToView
	r.bus.OnMessageReceived(func(p hooks.MessageReceived) { received = append(received, p) })
	r.bus.OnMessagesAddedToView(func(p hooks.MessagesAddedToView) { added = append(added, p) })

	require.NoError(t, r.Append(streamMsg(1, 5, time.Now())))

	require.Len(t, received, 1)
	assert.Equal(t, 1, received[0].MID)
	require.Len(t, added, 1)
	assert.Equal(t, []int{1}, added[0].MIDs)
}
