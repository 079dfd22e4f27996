package transfer

import (
	"errors"
	"time"
)

// Config holds the tunables of the sliding-window sender.
type Config struct {
	// ChunkChars is the number of payload characters carried by one Data message.
	ChunkChars int `json:"chunk_chars"`
	// AckTimeout bounds each wait for an acknowledgment within a round.
	AckTimeout time.Duration `json:"ack_timeout"`
}

const (
	DefaultChunkChars = 100
	// MaxChunkChars keeps a Data message inside a single datagram.
	MaxChunkChars     = 100
	DefaultAckTimeout = 1000 * time.Millisecond
)

// DefaultConfig returns the settings used by the reference protocol.
func DefaultConfig() *Config {
	return &Config{
		ChunkChars: DefaultChunkChars,
		AckTimeout: DefaultAckTimeout,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.ChunkChars <= 0 {
		return errors.New("chunk_chars must be positive")
	}
	if c.ChunkChars > MaxChunkChars {
		return errors.New("chunk_chars cannot be greater than max_chunk_chars")
	}
	if c.AckTimeout <= 0 {
		return errors.New("ack_timeout must be positive")
	}
	return nil
}
