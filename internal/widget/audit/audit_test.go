package audit

import (
	"testing"

	"github.com/stretchr/testify/mock"

	"chat-widget/internal/mocks"
	"chat-widget/internal/telemetry"
	"chat-widget/internal/widget/hooks"
)

func TestBindEmitsOnLifecycleEvents(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.test", mock.Anything).Return(nil).Times(3)

	emitter := telemetry.NewAuditEmitter(publisher, "audit.test", "chat-widget", "test")
	bus := hooks.NewBus()
	Bind(bus, emitter, 9)

	bus.EmitMessageSent(hooks.MessageSent{RoomID: 7, Message: "hi"})
	bus.EmitMessageEdited(hooks.MessageEdited{RoomID: 7, MID: 3, Message: "hi!"})
	bus.EmitMessageForwarded(hooks.MessageForwarded{MessageID: 3, FromRoomID: 7, ToRoomID: 2})

	publisher.AssertExpectations(t)
}

func TestBindWithNilEmitterIsNoop(t *testing.T) {
	bus := hooks.NewBus()
	Bind(bus, nil, 9)
	bus.EmitMessageSent(hooks.MessageSent{RoomID: 7, Message: "hi"})
}
