// Package audit bridges the widget's lifecycle hooks onto the AMQP audit
// emitter, so sends, edits and forwards show up in the same audit stream the
// backend writes to.
package audit

import (
	"context"
	"strconv"

	"chat-widget/internal/telemetry"
	"chat-widget/internal/widget/hooks"
)

// Bind subscribes audit emission to the lifecycle events worth a trail. The
// emitter may be nil; Bind is then a no-op.
func Bind(bus *hooks.Bus, emitter *telemetry.AuditEmitter, viewerUID int) {
	if emitter == nil {
		return
	}
	uid := strconv.Itoa(viewerUID)

	bus.OnMessageSent(func(p hooks.MessageSent) {
		emitter.EmitPayload(context.Background(), telemetry.AuditPayload{
			Level:  "INFO",
			Text:   "widget message sent",
			RoomID: p.RoomID,
		}, "", &uid)
	})
	bus.OnMessageEdited(func(p hooks.MessageEdited) {
		emitter.EmitPayload(context.Background(), telemetry.AuditPayload{
			Level:     "INFO",
			Text:      "widget message edited",
			RoomID:    p.RoomID,
			MessageID: p.MID,
		}, "", &uid)
	})
	bus.OnMessageForwarded(func(p hooks.MessageForwarded) {
		emitter.EmitPayload(context.Background(), telemetry.AuditPayload{
			Level:     "INFO",
			Text:      "widget message forwarded",
			RoomID:    p.ToRoomID,
			MessageID: p.MessageID,
		}, "", &uid)
	})
}
