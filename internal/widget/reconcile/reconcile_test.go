package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/models"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/stream"
	"chat-widget/internal/widget/view"
)

type bodyTemplates struct{}

func (bodyTemplates) Render(name string, data any) (string, error) {
	md, ok := data.(render.MessageData)
	if !ok {
		return "", fmt.Errorf("unexpected payload for %s", name)
	}
	switch name {
	case render.TemplateMessageBody:
		return md.Message.Content, nil
	case render.TemplateMessageEdited:
		if md.Message.EditedAt != nil {
			return "edited", nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("unexpected template %s", name)
	}
}

const viewerUID = 9

func newTestReconciler(t *testing.T) (*Reconciler, *view.Container) {
	t.Helper()
	c := view.NewContainer(1)
	r := NewReconciler(c, bodyTemplates{}, hooks.NewBus(), models.ViewerContext{UserID: viewerUID})
	return r, c
}

func renderedNode(c *view.Container, mid, fromUID int, body string) *view.Node {
	n := view.NewNode(mid, fromUID, time.Now())
	n.SetRegion(view.RegionBody, body)
	c.Append(n)
	return n
}

func editedMsg(mid, fromUID int, content string) models.Message {
	at := time.Now()
	return models.Message{ID: mid, RoomID: 1, FromUID: fromUID, Content: content, EditedAt: &at}
}

func TestHandleEditedRefreshesBodyAndMark(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, 5, "old")

	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(1, 5, "new")}))

	assert.Equal(t, "new", node.Region(view.RegionBody))
	assert.Equal(t, "edited", node.Region(view.RegionEdited))
}

func TestHandleEditedUnknownMIDIsIgnored(t *testing.T) {
	r, c := newTestReconciler(t)
	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(42, 5, "new")}))
	assert.Equal(t, 0, c.Len())
}

func TestHandleEditedLastApplicationWins(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, 5, "old")

	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(1, 5, "first")}))
	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(1, 5, "second")}))
	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(1, 5, "second")}))

	assert.Equal(t, "second", node.Region(view.RegionBody))
}

func TestHandleEditedRefreshesReplyPreviews(t *testing.T) {
	r, c := newTestReconciler(t)
	renderedNode(c, 1, 5, "old")

	replier := renderedNode(c, 2, 6, "reply body")
	replier.Parent = &view.ReplyPreview{MID: 1, FromUID: 5, Content: "old"}
	c.StagedReply = &view.ReplyPreview{MID: 1, FromUID: 5, Content: "old"}

	require.NoError(t, r.HandleEdited([]models.Message{editedMsg(1, 5, "new")}))

	assert.Equal(t, "new", replier.Parent.Content)
	assert.Equal(t, "new", c.StagedReply.Content)
}

func TestHandleDeletedNonAuthorSeesPlaceholder(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, 5, "secret")

	r.HandleDeleted(1)
	r.HandleDeleted(1) // re-delivery converges

	assert.True(t, node.HasClass(view.ClassDeleted))
	assert.Equal(t, stream.DeletedPlaceholder, node.Region(view.RegionBody))
	assert.Equal(t, 1, c.Len())
}

func TestHandleDeletedAuthorKeepsContent(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, viewerUID, "my words")

	r.HandleDeleted(1)

	assert.True(t, node.HasClass(view.ClassDeleted))
	assert.Equal(t, "my words", node.Region(view.RegionBody))
}

func TestHandleDeletedMarksReplyPreviews(t *testing.T) {
	r, c := newTestReconciler(t)
	renderedNode(c, 1, 5, "secret")
	replier := renderedNode(c, 2, 6, "reply body")
	replier.Parent = &view.ReplyPreview{MID: 1, FromUID: 5, Content: "secret"}

	r.HandleDeleted(1)

	assert.True(t, replier.Parent.Deleted)
	assert.Equal(t, stream.DeletedPlaceholder, replier.Parent.Content)
}

func TestHandleRestoredBringsBodyBack(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, 5, "secret")
	replier := renderedNode(c, 2, 6, "reply body")
	replier.Parent = &view.ReplyPreview{MID: 1, FromUID: 5, Content: "secret"}

	r.HandleDeleted(1)
	require.NoError(t, r.HandleRestored(models.Message{ID: 1, RoomID: 1, FromUID: 5, Content: "secret"}))

	assert.False(t, node.HasClass(view.ClassDeleted))
	assert.Equal(t, "secret", node.Region(view.RegionBody))
	assert.False(t, replier.Parent.Deleted)
	assert.Equal(t, "secret", replier.Parent.Content)
}

func TestHandleRestoredLeavesAuthorBodyUntouched(t *testing.T) {
	r, c := newTestReconciler(t)
	node := renderedNode(c, 1, viewerUID, "my words")
	replier := renderedNode(c, 2, 6, "reply body")
	replier.Parent = &view.ReplyPreview{MID: 1, FromUID: viewerUID, Content: "my words"}

	r.HandleDeleted(1)
	// The server record may lag the author's local content.
	require.NoError(t, r.HandleRestored(models.Message{ID: 1, RoomID: 1, FromUID: viewerUID, Content: "stale"}))

	assert.False(t, node.HasClass(view.ClassDeleted))
	assert.Equal(t, "my words", node.Region(view.RegionBody))
	assert.False(t, replier.Parent.Deleted)
	assert.Equal(t, "my words", replier.Parent.Content)
}

func TestHandleRestoredUnknownMIDIsIgnored(t *testing.T) {
	r, _ := newTestReconciler(t)
	require.NoError(t, r.HandleRestored(models.Message{ID: 42, RoomID: 1, FromUID: 5, Content: "x"}))
}
