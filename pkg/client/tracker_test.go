package client

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/rescp17/slidingftp/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AcceptsInArrivalOrder(t *testing.T) {
	var sink bytes.Buffer
	tracker := NewTracker(&sink)

	for _, content := range []string{"0001world", "0000hello "} {
		_, err := tracker.Accept(content)
		require.NoError(t, err)
	}

	assert.Equal(t, "world hello ", sink.String(), "payloads are not reordered by id")
	assert.Equal(t, 2, tracker.Count())
	assert.Equal(t, int64(11), tracker.Bytes())
	assert.True(t, tracker.Seen("0000"))
	assert.False(t, tracker.Seen("0002"))
}

func TestTracker_RejectsDuplicates(t *testing.T) {
	var sink bytes.Buffer
	tracker := NewTracker(&sink)

	id, err := tracker.Accept("0007first")
	require.NoError(t, err)
	assert.Equal(t, "0007", id)

	id, err = tracker.Accept("0007second")
	assert.ErrorIs(t, err, protocol.ErrDuplicateChunk)
	assert.Equal(t, "0007", id)
	assert.Equal(t, "first", sink.String())
	assert.Equal(t, 1, tracker.Count())
}

func TestTracker_ShortContent(t *testing.T) {
	var sink bytes.Buffer
	tracker := NewTracker(&sink)

	_, err := tracker.Accept("007")
	assert.ErrorIs(t, err, protocol.ErrShortChunk)
	assert.Zero(t, tracker.Count())
	assert.Empty(t, sink.String())

	_, err = tracker.Accept("0007")
	require.NoError(t, err, "an id with an empty payload is a valid chunk")
}

// The id space holds 10000 values and the seen set is never cleared, so the
// 10001st chunk of a resource collides with the first.
func TestTracker_IDWrapIsReportedAsDuplicate(t *testing.T) {
	var sink bytes.Buffer
	tracker := NewTracker(&sink)

	for seq := range protocol.IDModulus {
		_, err := tracker.Accept(protocol.FormatChunkID(seq) + "x")
		require.NoError(t, err)
	}

	_, err := tracker.Accept(protocol.FormatChunkID(protocol.IDModulus) + "x")
	assert.ErrorIs(t, err, protocol.ErrDuplicateChunk)
}

func TestTracker_RebuildsResourceFromWireMessages(t *testing.T) {
	content := strings.Repeat("Ophélie <3 \"Hamlet\"\n\tça va? 日本語 🎭 \u2028", 40)
	chunker, err := transfer.NewChunker(strings.NewReader(content), transfer.DefaultChunkChars)
	require.NoError(t, err)
	codec := protocol.NewJSONCodec()

	var sink bytes.Buffer
	tracker := NewTracker(&sink)
	for {
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		wire, err := codec.Encode(protocol.NewData(chunk.ID, chunk.Payload))
		require.NoError(t, err)
		msg, err := codec.Decode(wire)
		require.NoError(t, err)
		_, err = tracker.Accept(msg.Content)
		require.NoError(t, err)
	}

	assert.Equal(t, []byte(content), sink.Bytes())
	assert.Equal(t, int64(len(content)), tracker.Bytes())
}
