package composer

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/mocks"
	"chat-widget/internal/models"
	"chat-widget/internal/widget/api"
	"chat-widget/internal/widget/hooks"
	"chat-widget/internal/widget/notify"
	"chat-widget/internal/widget/render"
	"chat-widget/internal/widget/stream"
	"chat-widget/internal/widget/view"
)

type editorTemplates struct{}

func (editorTemplates) Render(name string, data any) (string, error) {
	ed := data.(render.EditorData)
	return "editor:" + ed.RawContent, nil
}

type testBridge struct {
	bridge    *Bridge
	transport *mocks.TransportMock
	notifier  *mocks.NotifierMock
	container *view.Container
	bus       *hooks.Bus
}

func newTestBridge(t *testing.T, confirm bool) *testBridge {
	t.Helper()
	transport := new(mocks.TransportMock)
	notifier := new(mocks.NotifierMock)
	container := view.NewContainer(7)
	bus := hooks.NewBus()
	bridge := NewBridge(transport, editorTemplates{}, notifier, notify.StaticConfirmer(confirm), container, stream.NewScrollController(), bus, models.ViewerContext{UserID: 9, DisplayName: "ada"})
	return &testBridge{bridge: bridge, transport: transport, notifier: notifier, container: container, bus: bus}
}

// unmarshalInto fills a transport out-pointer through a JSON round trip, the
// way the real client decodes a response body.
func unmarshalInto(src any, out any) {
	raw, _ := json.Marshal(src)
	_ = json.Unmarshal(raw, out)
}

func noticeWithID(id string) any {
	return mock.MatchedBy(func(n notify.Notice) bool { return n.ID == id })
}

func TestSendWhitespaceOnlyIsSilentNoop(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.bridge.SetInput("   \n\t")

	require.NoError(t, tb.bridge.Send(context.Background()))

	assert.Equal(t, "   \n\t", tb.bridge.Input().Value)
	tb.transport.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tb.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestSendSuccessClearsInputAndStagedReply(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.container.StagedReply = &view.ReplyPreview{MID: 3}
	tb.bridge.SetInput("hi there")

	var sent []hooks.MessageSent
	tb.bus.OnMessageSent(func(p hooks.MessageSent) { sent = append(sent, p) })

	tb.transport.On("Post", mock.Anything, "/chats/7", map[string]any{"message": "hi there", "toMid": 3}, nil).Return(nil).Once()

	require.NoError(t, tb.bridge.Send(context.Background()))

	assert.Empty(t, tb.bridge.Input().Value)
	assert.Nil(t, tb.container.StagedReply)
	require.Len(t, sent, 1)
	assert.Equal(t, hooks.MessageSent{RoomID: 7, Message: "hi there"}, sent[0])
	tb.transport.AssertExpectations(t)
}

func TestSendFailureRestoresInput(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.bridge.SetInput("hi")

	tb.transport.On("Post", mock.Anything, "/chats/7", mock.Anything, nil).
		Return(&api.RequestError{StatusCode: http.StatusBadGateway, Message: "network down"}).Once()
	tb.notifier.On("Notify", mock.MatchedBy(func(n notify.Notice) bool {
		return n.ID == notify.NoticeIDSendError && n.Message == "network down" && n.Severity == notify.SeverityDanger
	})).Once()

	require.Error(t, tb.bridge.Send(context.Background()))

	assert.Equal(t, "hi", tb.bridge.Input().Value)
	tb.transport.AssertExpectations(t)
	tb.notifier.AssertExpectations(t)
}

func TestSendEmailNotConfirmedGetsDedicatedWarning(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.bridge.SetInput("hi")

	tb.transport.On("Post", mock.Anything, "/chats/7", mock.Anything, nil).
		Return(&api.RequestError{StatusCode: http.StatusForbidden, Message: api.EmailNotConfirmedMessage}).Once()
	tb.notifier.On("Notify", noticeWithID(notify.NoticeIDEmailConfirmWarning)).Once()

	require.Error(t, tb.bridge.Send(context.Background()))
	tb.notifier.AssertExpectations(t)
}

func TestInputStateTracksHeightAndRemaining(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.bridge.SetInput("a\nb\nc")

	state := tb.bridge.Input()
	assert.Equal(t, 3, state.Height)
	assert.Equal(t, DefaultMaxLength-5, state.Remaining)
}

func TestPrepReplyStagesPreview(t *testing.T) {
	tb := newTestBridge(t, true)
	node := view.NewNode(3, 5, time.Now())
	node.DisplayName = "bob"
	node.SetRegion(view.RegionBody, "quoted body")
	tb.container.Append(node)

	tb.bridge.PrepReply(3)

	staged := tb.container.StagedReply
	require.NotNil(t, staged)
	assert.Equal(t, 3, staged.MID)
	assert.Equal(t, "bob", staged.DisplayName)
	assert.Equal(t, "quoted body", staged.Content)
}

func TestPrepEditOpensInlineEditor(t *testing.T) {
	tb := newTestBridge(t, true)
	node := view.NewNode(99, 9, time.Now())
	tb.container.Append(node)

	tb.transport.On("Get", mock.Anything, "/chats/7/messages/99/raw", mock.Anything).
		Run(func(args mock.Arguments) {
			unmarshalInto(map[string]string{"content": "raw *markdown*"}, args.Get(2))
		}).Return(nil).Once()

	require.NoError(t, tb.bridge.PrepEdit(context.Background(), 99))

	editor := tb.bridge.Editor(99)
	require.NotNil(t, editor)
	assert.Equal(t, "raw *markdown*", editor.Value)
	assert.Equal(t, "editor:raw *markdown*", editor.Markup)
	assert.True(t, node.HasClass(view.ClassEditing))
	tb.transport.AssertExpectations(t)
}

func TestSaveEditClosesEditorAndEmits(t *testing.T) {
	tb := newTestBridge(t, true)
	node := view.NewNode(99, 9, time.Now())
	tb.container.Append(node)
	tb.bridge.editors[99] = &InlineEditor{MID: 99, Value: "new text"}
	node.SetClass(view.ClassEditing, true)

	var edited []hooks.MessageEdited
	tb.bus.OnMessageEdited(func(p hooks.MessageEdited) { edited = append(edited, p) })

	tb.transport.On("Put", mock.Anything, "/chats/7/messages/99", map[string]any{"message": "new text"}, nil).Return(nil).Once()

	require.NoError(t, tb.bridge.SaveEdit(context.Background(), 99))

	assert.Nil(t, tb.bridge.Editor(99))
	assert.False(t, node.HasClass(view.ClassEditing))
	require.Len(t, edited, 1)
	assert.Equal(t, hooks.MessageEdited{RoomID: 7, MID: 99, Message: "new text"}, edited[0])
	tb.transport.AssertExpectations(t)
}

func TestSaveEditFailureKeepsDraft(t *testing.T) {
	tb := newTestBridge(t, true)
	tb.bridge.editors[99] = &InlineEditor{MID: 99, Value: "new text"}

	tb.transport.On("Put", mock.Anything, "/chats/7/messages/99", mock.Anything, nil).
		Return(&api.RequestError{StatusCode: http.StatusInternalServerError, Message: "save failed"}).Once()
	tb.notifier.On("Notify", noticeWithID(notify.NoticeIDSendError)).Once()

	require.Error(t, tb.bridge.SaveEdit(context.Background(), 99))

	editor := tb.bridge.Editor(99)
	require.NotNil(t, editor)
	assert.Equal(t, "new text", editor.Value)
	tb.notifier.AssertExpectations(t)
}

func TestDeleteDeclinedMakesNoRequest(t *testing.T) {
	tb := newTestBridge(t, false)

	require.NoError(t, tb.bridge.Delete(context.Background(), 5))
	tb.transport.AssertNotCalled(t, "Del", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteConfirmedMarksNode(t *testing.T) {
	tb := newTestBridge(t, true)
	node := view.NewNode(5, 9, time.Now())
	tb.container.Append(node)

	tb.transport.On("Del", mock.Anything, "/chats/7/messages/5", nil).Return(nil).Once()

	require.NoError(t, tb.bridge.Delete(context.Background(), 5))
	assert.True(t, node.HasClass(view.ClassDeleted))
	tb.transport.AssertExpectations(t)
}

func TestRestoreClearsDeletedClass(t *testing.T) {
	tb := newTestBridge(t, true)
	node := view.NewNode(5, 9, time.Now())
	node.SetClass(view.ClassDeleted, true)
	tb.container.Append(node)

	tb.transport.On("Post", mock.Anything, "/chats/7/messages/5/restore", nil, nil).Return(nil).Once()

	require.NoError(t, tb.bridge.Restore(context.Background(), 5))
	assert.False(t, node.HasClass(view.ClassDeleted))
	tb.transport.AssertExpectations(t)
}
