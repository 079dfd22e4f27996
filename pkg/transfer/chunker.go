package transfer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rescp17/slidingftp/pkg/protocol"
)

type Chunk struct {
	Seq     int
	ID      string // Seq rendered by protocol.FormatChunkID
	Payload string
}

// Chunker cuts a UTF-8 resource into chunks of at most chunkChars
// characters, never splitting a rune. Invalid UTF-8 is an error.
type Chunker struct {
	reader     *bufio.Reader
	chunkChars int
	nextSeq    int
	bytesRead  int64
	exhausted  bool
}

func NewChunker(r io.Reader, chunkChars int) (*Chunker, error) {
	if chunkChars <= 0 || chunkChars > MaxChunkChars {
		return nil, fmt.Errorf("chunk size must be between 1 and %d characters", MaxChunkChars)
	}
	return &Chunker{
		reader:     bufio.NewReader(r),
		chunkChars: chunkChars,
	}, nil
}

// Next returns the next chunk, or io.EOF once the resource is exhausted.
func (c *Chunker) Next() (*Chunk, error) {
	if c.exhausted {
		return nil, io.EOF
	}

	var payload strings.Builder
	for chars := 0; chars < c.chunkChars; chars++ {
		r, size, err := c.reader.ReadRune()
		if err == io.EOF {
			c.exhausted = true
			break
		}
		if err != nil {
			return nil, err
		}

		if r == utf8.RuneError && size == 1 {
			// JSON would carry it as U+FFFD and the client would write different bytes.
			return nil, fmt.Errorf("%w: invalid byte at offset %d", protocol.ErrNotText, c.bytesRead)
		}
		payload.WriteRune(r)
		c.bytesRead += int64(size)
	}

	if payload.Len() == 0 {
		return nil, io.EOF
	}

	chunk := &Chunk{
		Seq:     c.nextSeq,
		ID:      protocol.FormatChunkID(c.nextSeq),
		Payload: payload.String(),
	}
	c.nextSeq++
	return chunk, nil
}

// BytesRead reports how many bytes of the resource have been consumed.
func (c *Chunker) BytesRead() int64 {
	return c.bytesRead
}
