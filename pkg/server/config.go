package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/rescp17/slidingftp/internal/util"
	"github.com/rescp17/slidingftp/pkg/transfer"
)

const (
	DefaultAddr           = "127.0.0.1:32000"
	DefaultControlTimeout = 5000 * time.Millisecond
)

// Config holds the settings of a serving process.
type Config struct {
	// Addr is the UDP endpoint the server binds.
	Addr string `json:"addr"`
	// ControlTimeout bounds every wait outside a transfer round.
	ControlTimeout time.Duration `json:"control_timeout"`
	// Root confines resource names to a directory. Empty serves names as given.
	Root string `json:"root,omitempty"`
	// Announce advertises the server over mDNS.
	Announce bool `json:"announce"`

	Transfer transfer.Config `json:"transfer"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:           DefaultAddr,
		ControlTimeout: DefaultControlTimeout,
		Transfer:       *transfer.DefaultConfig(),
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.ControlTimeout <= 0 {
		return errors.New("control_timeout must be positive")
	}
	if c.Root != "" {
		exists, isDir, err := util.CheckDirectory(c.Root)
		if err != nil {
			return fmt.Errorf("root: %w", err)
		}
		if !exists || !isDir {
			return fmt.Errorf("root %q is not a directory", c.Root)
		}
	}
	return c.Transfer.Validate()
}
