package agent

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/voxkit/voxkit/store"
	"github.com/voxkit/voxkit/webhook"
)

// StarterAgent is a deterministic stand-in for a conversational agent.
// It greets on session start, acknowledges each utterance with the
// running turn count, and reflects data events back as response.data
// chunks. Swap it for an LLM-backed implementation to build a real
// assistant.
type StarterAgent struct {
	welcome string
}

// NewStarterAgent returns a StarterAgent.
func NewStarterAgent() *StarterAgent {
	return &StarterAgent{welcome: "Hi there! How can I help today?"}
}

func (a *StarterAgent) Name() string { return "starter" }

func (a *StarterAgent) HandleSessionStart(ctx context.Context, evt *webhook.SessionStartEvent, stream *webhook.Stream) error {
	return stream.TTS(a.welcome)
}

func (a *StarterAgent) HandleMessage(ctx context.Context, evt *webhook.MessageEvent, stream *webhook.Stream, history []store.Message) ([]store.Message, error) {
	text := ""
	if evt.Text != nil {
		text = *evt.Text
	}

	userTurns := 1
	for _, m := range history {
		if m.Role == "user" {
			userTurns++
		}
	}

	reply := "Got it. That was your first message."
	if userTurns > 1 {
		reply = "Got it. I have heard " + strconv.Itoa(userTurns) + " messages from you so far."
	}
	if err := stream.TTS(reply); err != nil {
		return nil, err
	}

	now := time.Now()
	return []store.Message{
		newMessage(evt, "user", text, now),
		newMessage(evt, "assistant", reply, now),
	}, nil
}

// HandleData reflects the payload back so clients can confirm receipt.
func (a *StarterAgent) HandleData(ctx context.Context, evt *webhook.DataEvent, stream *webhook.Stream) error {
	return stream.Data(map[string]any{"received": json.RawMessage(evt.Data)})
}

func (a *StarterAgent) HandleSessionEnd(ctx context.Context, evt *webhook.SessionEndEvent) error {
	return nil
}
