package agent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voxkit/voxkit/store"
	"github.com/voxkit/voxkit/webhook"
)

// EchoAgent repeats user input back. Useful for verifying the webhook
// and streaming plumbing end to end without any model behind it.
type EchoAgent struct {
	welcome string
}

// NewEchoAgent returns an EchoAgent.
func NewEchoAgent() *EchoAgent {
	return &EchoAgent{welcome: "Welcome to the Echo Agent!"}
}

func (a *EchoAgent) Name() string { return "echo" }

func (a *EchoAgent) HandleSessionStart(ctx context.Context, evt *webhook.SessionStartEvent, stream *webhook.Stream) error {
	return stream.TTS(a.welcome)
}

func (a *EchoAgent) HandleMessage(ctx context.Context, evt *webhook.MessageEvent, stream *webhook.Stream, history []store.Message) ([]store.Message, error) {
	text := ""
	if evt.Text != nil {
		text = *evt.Text
	}
	reply := "You said: " + text
	if err := stream.TTS(reply); err != nil {
		return nil, err
	}

	now := time.Now()
	return []store.Message{
		newMessage(evt, "user", text, now),
		newMessage(evt, "assistant", reply, now),
	}, nil
}

func (a *EchoAgent) HandleSessionEnd(ctx context.Context, evt *webhook.SessionEndEvent) error {
	return nil
}

func newMessage(evt webhook.Event, role, content string, at time.Time) store.Message {
	return store.Message{
		MessageID:      "msg_" + uuid.New().String()[:8],
		ConversationID: evt.ConversationID(),
		SessionID:      evt.SessionID(),
		Role:           role,
		Content:        content,
		CreatedAt:      at,
	}
}
