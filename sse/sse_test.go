package sse

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteChunkFraming(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.WriteChunk(Chunk{Event: "delta", ID: "1", Data: "hello"}))

	assert.Equal(t, "event: delta\nid: 1\ndata: hello\n\n", buf.String())
}

func TestWriteChunkDataOnly(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.WriteChunk(Chunk{Data: `{"type":"response.end"}`}))

	assert.Equal(t, "data: {\"type\":\"response.end\"}\n\n", buf.String())
}

func TestWriteChunkMultiLineData(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.WriteChunk(Chunk{Data: "line1\nline2"}))

	assert.Equal(t, "data: line1\ndata: line2\n\n", buf.String())
}

func TestWriteDone(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.WriteDone())

	assert.Equal(t, "data: [DONE]\n\n", buf.String())
}

func TestEncoderFlushesHTTPResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec)

	require.NoError(t, enc.WriteChunk(Chunk{Data: "hi"}))

	assert.True(t, rec.Flushed)
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	for _, payload := range []string{"Hello", "World"} {
		require.NoError(t, enc.WriteChunk(Chunk{Data: payload}))
	}

	chunks, err := DecodeAll(&buf)
	require.NoError(t, err)

	var payloads []string
	for _, chunk := range chunks {
		payloads = append(payloads, chunk.Data)
	}
	assert.Equal(t, []string{"Hello", "World"}, payloads)
}

func TestRoundTripMultiLine(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.WriteChunk(Chunk{Event: "delta", Data: "line1\nline2"}))

	chunks, err := DecodeAll(&buf)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "delta", chunks[0].Event)
	assert.Equal(t, "line1\nline2", chunks[0].Data)
}

func TestDecoderIgnoresComments(t *testing.T) {
	stream := ": keepalive\n\nevent: done\ndata: bye\n\n"
	chunks, err := DecodeAll(strings.NewReader(stream))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "done", chunks[0].Event)
	assert.Equal(t, "bye", chunks[0].Data)
}

func TestDecoderHandlesMissingTrailingBlankLine(t *testing.T) {
	chunks, err := DecodeAll(strings.NewReader("data: tail"))
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "tail", chunks[0].Data)
}
