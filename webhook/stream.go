package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/voxkit/voxkit/sse"
)

// Stream response message types understood by the platform client.
const (
	ResponseTypeTTS  = "response.tts"
	ResponseTypeData = "response.data"
	ResponseTypeEnd  = "response.end"
)

// Stream writes agent output for one turn as platform-shaped SSE
// messages: {"type":...,"turn_id":...,...} JSON in a data: frame. The
// response.end marker is the terminal sentinel; End is idempotent.
type Stream struct {
	turnID string
	enc    *sse.Encoder
	closed bool
}

// NewStream returns a Stream for the given turn writing through enc.
func NewStream(turnID string, enc *sse.Encoder) *Stream {
	return &Stream{turnID: turnID, enc: enc}
}

// TurnID returns the turn this stream answers.
func (s *Stream) TurnID() string { return s.turnID }

// TTS emits a speech chunk for the platform to synthesize.
func (s *Stream) TTS(content string) error {
	return s.emit(ResponseTypeTTS, map[string]any{"content": content})
}

// Data emits a structured payload (tool results, UI state, errors).
func (s *Stream) Data(content any) error {
	return s.emit(ResponseTypeData, map[string]any{"content": content})
}

// End emits the terminal response.end marker. Subsequent writes are
// dropped. Safe to call more than once.
func (s *Stream) End() error {
	if s.closed {
		return nil
	}
	err := s.emit(ResponseTypeEnd, nil)
	s.closed = true
	return err
}

func (s *Stream) emit(messageType string, content map[string]any) error {
	if s.closed {
		return nil
	}

	payload := map[string]any{
		"type":    messageType,
		"turn_id": s.turnID,
	}
	for k, v := range content {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}
	return s.enc.WriteChunk(sse.Chunk{Data: string(data)})
}
