package client

import (
	"fmt"
	"io"

	"github.com/rescp17/slidingftp/pkg/protocol"
)

// Tracker remembers every chunk id accepted during the run and appends
// accepted payloads to the sink in arrival order. Ids are never forgotten,
// so a resource longer than protocol.IDModulus chunks trips the duplicate check.
type Tracker struct {
	sink  io.Writer
	seen  map[string]struct{}
	count int
	bytes int64
}

func NewTracker(sink io.Writer) *Tracker {
	return &Tracker{
		sink: sink,
		seen: make(map[string]struct{}),
	}
}

// Accept processes one Data content and returns its chunk id. It fails with
// protocol.ErrShortChunk, protocol.ErrDuplicateChunk or the sink's write error;
// in every failure case nothing is recorded.
func (t *Tracker) Accept(content string) (string, error) {
	id, payload, err := protocol.SplitChunk(content)
	if err != nil {
		return "", err
	}
	if _, dup := t.seen[id]; dup {
		return id, fmt.Errorf("%w: %s", protocol.ErrDuplicateChunk, id)
	}
	if _, err := io.WriteString(t.sink, payload); err != nil {
		return id, err
	}

	t.seen[id] = struct{}{}
	t.count++
	t.bytes += int64(len(payload))
	return id, nil
}

// Seen reports whether id has been accepted.
func (t *Tracker) Seen(id string) bool {
	_, ok := t.seen[id]
	return ok
}

func (t *Tracker) Count() int {
	return t.count
}

func (t *Tracker) Bytes() int64 {
	return t.bytes
}
