package transfer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLink acknowledges every Data message it is handed unless drop says
// otherwise. An empty ack queue reads as a timeout.
type fakeLink struct {
	sent     []string
	attempts map[string]int
	acks     []string
	drop     func(id string, attempt int) bool

	sendErr  error
	awaitErr error
}

func newFakeLink() *fakeLink {
	return &fakeLink{attempts: make(map[string]int)}
}

func (l *fakeLink) SendData(_ context.Context, msg protocol.Message) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	id, _, err := protocol.SplitChunk(msg.Content)
	if err != nil {
		return err
	}
	l.sent = append(l.sent, id)
	l.attempts[id]++
	if l.drop != nil && l.drop(id, l.attempts[id]) {
		return nil
	}
	l.acks = append(l.acks, id)
	return nil
}

func (l *fakeLink) AwaitAck(_ context.Context, _ time.Duration) (AckResult, error) {
	if l.awaitErr != nil {
		return AckResult{}, l.awaitErr
	}
	if len(l.acks) == 0 {
		return AckResult{Status: AckTimedOut}, nil
	}
	id := l.acks[0]
	l.acks = l.acks[1:]
	return AckResult{Status: AckReceived, ID: id}, nil
}

func dropFirstAttempt(ids ...string) func(string, int) bool {
	return func(id string, attempt int) bool {
		if attempt != 1 {
			return false
		}
		for _, d := range ids {
			if d == id {
				return true
			}
		}
		return false
	}
}

func hamlet(chars int) string {
	return strings.Repeat("h", chars)
}

func TestSender_LosslessTransfer(t *testing.T) {
	link := newFakeLink()
	sender := NewSender(link, 20, nil, nil)

	stats, err := sender.Send(context.Background(), strings.NewReader(hamlet(250)))
	require.NoError(t, err)

	assert.Equal(t, []string{"0000", "0001", "0002"}, link.sent)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, int64(250), stats.Bytes)
	assert.Equal(t, []int{1, 2}, stats.WindowHistory)
	assert.Equal(t, 2, stats.Rounds)
	assert.Zero(t, stats.Timeouts)
	assert.Zero(t, stats.Retransmissions)
}

func TestSender_WindowHistoryForEveryThreshold(t *testing.T) {
	const chunks = 120
	config := &Config{ChunkChars: 1, AckTimeout: time.Millisecond}

	for threshold := protocol.MinThreshold; threshold <= protocol.MaxThreshold; threshold++ {
		var want []int
		w, remaining := 1, chunks
		for remaining > 0 {
			b := min(w, threshold)
			want = append(want, b)
			remaining -= min(b, remaining)
			w = b * 2
		}

		link := newFakeLink()
		stats, err := NewSender(link, threshold, config, nil).Send(context.Background(), strings.NewReader(hamlet(chunks)))
		require.NoError(t, err)

		assert.Equal(t, want, stats.WindowHistory, "threshold %d", threshold)
		assert.Len(t, link.sent, chunks)
		for _, size := range stats.WindowHistory {
			assert.LessOrEqual(t, size, threshold)
		}
	}
}

func TestSender_RetransmitsAfterTimeout(t *testing.T) {
	link := newFakeLink()
	link.drop = dropFirstAttempt("0001")
	sender := NewSender(link, 20, nil, nil)

	stats, err := sender.Send(context.Background(), strings.NewReader(hamlet(250)))
	require.NoError(t, err)

	assert.Equal(t, []string{"0000", "0001", "0002", "0001"}, link.sent)
	assert.Equal(t, 1, stats.Timeouts)
	assert.Equal(t, 1, stats.Retransmissions)
	assert.Equal(t, []int{1, 2}, stats.WindowHistory)
	assert.Equal(t, 1, sender.Window().Size(), "a lossy round leaves the window at one")
}

func TestSender_RoundAfterLossStartsAtOne(t *testing.T) {
	link := newFakeLink()
	link.drop = dropFirstAttempt("0001")

	stats, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(hamlet(500)))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 1, 2}, stats.WindowHistory)
	assert.Equal(t, []string{"0000", "0001", "0002", "0001", "0003", "0004"}, link.sent)
}

func TestSender_ResendLimitedToWindowSize(t *testing.T) {
	link := newFakeLink()
	link.drop = dropFirstAttempt("0001", "0002")

	stats, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(hamlet(300)))
	require.NoError(t, err)

	// Each timeout resets the window to one, so only one chunk is resent per timeout.
	assert.Equal(t, []string{"0000", "0001", "0002", "0001", "0002"}, link.sent)
	assert.Equal(t, 2, stats.Timeouts)
	assert.Equal(t, 2, stats.Retransmissions)
}

func TestSender_IgnoresStaleAcks(t *testing.T) {
	link := newFakeLink()
	link.acks = []string{"4242"}

	stats, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(hamlet(50)))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.StaleAcks)
	assert.Equal(t, 1, stats.Chunks)
	assert.Zero(t, stats.Timeouts)
}

func TestSender_EmptyResource(t *testing.T) {
	link := newFakeLink()

	stats, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(""))
	require.NoError(t, err)

	assert.Empty(t, link.sent)
	assert.Zero(t, stats.Rounds)
	assert.Empty(t, stats.WindowHistory)
}

func TestSender_LinkErrorsAbort(t *testing.T) {
	boom := errors.New("boom")

	t.Run("await", func(t *testing.T) {
		link := newFakeLink()
		link.awaitErr = boom
		_, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(hamlet(250)))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"0000"}, link.sent)
	})

	t.Run("send", func(t *testing.T) {
		link := newFakeLink()
		link.sendErr = boom
		_, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader(hamlet(250)))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, link.sent)
	})
}

func TestSender_ReadErrorAborts(t *testing.T) {
	link := newFakeLink()
	_, err := NewSender(link, 20, nil, nil).Send(context.Background(), failingReader{})
	assert.ErrorContains(t, err, "read resource")
}

func TestSender_RefusesNonUTF8Resource(t *testing.T) {
	link := newFakeLink()
	_, err := NewSender(link, 20, nil, nil).Send(context.Background(), strings.NewReader("ab\xffcd"))
	assert.ErrorIs(t, err, protocol.ErrNotText)
	assert.Empty(t, link.sent, "nothing is sent before the bad byte is found")
}

func TestSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	link := newFakeLink()
	_, err := NewSender(link, 20, nil, nil).Send(ctx, strings.NewReader(hamlet(250)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, link.sent)
}
