package webhook

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxkit/voxkit/sse"
)

func decodeStream(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	chunks, err := sse.DecodeAll(buf)
	require.NoError(t, err)

	var messages []map[string]any
	for _, chunk := range chunks {
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(chunk.Data), &msg))
		messages = append(messages, msg)
	}
	return messages
}

func TestStreamEmitsExpectedMessages(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStream("turn123", sse.NewEncoder(&buf))

	require.NoError(t, stream.TTS("Hello"))
	require.NoError(t, stream.Data(map[string]string{"foo": "bar"}))
	require.NoError(t, stream.End())

	messages := decodeStream(t, &buf)
	require.Len(t, messages, 3)

	assert.Equal(t, ResponseTypeTTS, messages[0]["type"])
	assert.Equal(t, "Hello", messages[0]["content"])
	assert.Equal(t, "turn123", messages[0]["turn_id"])

	assert.Equal(t, ResponseTypeData, messages[1]["type"])
	assert.Equal(t, map[string]any{"foo": "bar"}, messages[1]["content"])

	assert.Equal(t, ResponseTypeEnd, messages[2]["type"])
	assert.Equal(t, "turn123", messages[2]["turn_id"])
}

func TestStreamEndIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStream("turn123", sse.NewEncoder(&buf))

	require.NoError(t, stream.End())
	require.NoError(t, stream.End())

	messages := decodeStream(t, &buf)
	require.Len(t, messages, 1)
	assert.Equal(t, ResponseTypeEnd, messages[0]["type"])
}

func TestStreamDropsWritesAfterEnd(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStream("turn123", sse.NewEncoder(&buf))

	require.NoError(t, stream.End())
	require.NoError(t, stream.TTS("too late"))

	messages := decodeStream(t, &buf)
	require.Len(t, messages, 1)
}

func TestStreamEndIsLastMessage(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStream("t1", sse.NewEncoder(&buf))

	require.NoError(t, stream.TTS("one"))
	require.NoError(t, stream.TTS("two"))
	require.NoError(t, stream.End())

	messages := decodeStream(t, &buf)
	require.Len(t, messages, 3)
	assert.Equal(t, ResponseTypeEnd, messages[len(messages)-1]["type"])
}
