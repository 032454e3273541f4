package stream

import (
	"time"

	"chat-widget/internal/models"
	"chat-widget/internal/widget/view"
)

// newSetGap is the quiet period after which a same-sender message still
// starts a new speaker block.
const newSetGap = 3 * time.Minute

// GroupDecision stamps an incoming message's position in the stream.
type GroupDecision struct {
	NewSet      bool
	VisualIndex int
}

// DecideGrouping decides whether a message appended after the last rendered
// node starts a new speaker block. It is pure and only valid for appending a
// single message to an existing tail; batch renders recompute pairwise
// against each message's predecessor in the batch.
func DecideGrouping(last *view.Node, candidate models.Message) GroupDecision {
	if last == nil {
		return GroupDecision{NewSet: true, VisualIndex: 0}
	}
	newSet := candidate.ReplyToMID != nil ||
		last.FromUID != candidate.FromUID ||
		candidate.CreatedAt.Sub(last.Timestamp) > newSetGap
	return GroupDecision{NewSet: newSet, VisualIndex: last.VisualIndex + 1}
}
