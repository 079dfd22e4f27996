package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 100, config.ChunkChars)
	assert.Equal(t, time.Second, config.AckTimeout)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"zero chunk", func(c *Config) { c.ChunkChars = 0 }, "chunk_chars must be positive"},
		{"oversized chunk", func(c *Config) { c.ChunkChars = MaxChunkChars + 1 }, "chunk_chars cannot be greater than max_chunk_chars"},
		{"zero ack timeout", func(c *Config) { c.AckTimeout = 0 }, "ack_timeout must be positive"},
		{"small chunk", func(c *Config) { c.ChunkChars = 1 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
