package protocol

import (
	"fmt"
)

const (
	// IDLength is the number of decimal digits that prefix every Data content.
	IDLength = 4
	// IDModulus is the size of the chunk id space; ids wrap after 9999.
	IDModulus = 10000

	MinThreshold = 1
	MaxThreshold = 50
)

// FormatChunkID renders a sequence number as a zero-padded 4-digit id.
func FormatChunkID(seq int) string {
	seq %= IDModulus
	if seq < 0 {
		seq += IDModulus
	}
	return fmt.Sprintf("%04d", seq)
}

// SplitChunk separates a Data content into its id and payload.
// Contents shorter than IDLength yield ErrShortChunk.
func SplitChunk(content string) (id, payload string, err error) {
	if len(content) < IDLength {
		return "", "", fmt.Errorf("%w: %d bytes", ErrShortChunk, len(content))
	}
	return content[:IDLength], content[IDLength:], nil
}

// AckID extracts the chunk id an Ack refers to.
func AckID(content string) (string, bool) {
	if len(content) < IDLength {
		return "", false
	}
	return content[:IDLength], true
}
