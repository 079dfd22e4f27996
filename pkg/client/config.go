package client

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
)

const (
	DefaultServerAddr     = "127.0.0.1:32000"
	DefaultBindAddr       = "127.0.0.1:0"
	DefaultThreshold      = 20
	DefaultResource       = "hamlet.txt"
	DefaultReceiveTimeout = 5000 * time.Millisecond
)

// Config holds the settings of one fetch.
type Config struct {
	ServerAddr string `json:"server_addr"`
	BindAddr   string `json:"bind_addr"`
	// Threshold is sent in Hello and caps the server's window.
	Threshold int    `json:"threshold"`
	Resource  string `json:"resource"`
	// Output is the sink path. Empty means client_<base of Resource>.
	Output         string        `json:"output,omitempty"`
	ReceiveTimeout time.Duration `json:"receive_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		ServerAddr:     DefaultServerAddr,
		BindAddr:       DefaultBindAddr,
		Threshold:      DefaultThreshold,
		Resource:       DefaultResource,
		ReceiveTimeout: DefaultReceiveTimeout,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("server_addr must not be empty")
	}
	if c.Threshold < protocol.MinThreshold || c.Threshold > protocol.MaxThreshold {
		return fmt.Errorf("threshold must be between %d and %d", protocol.MinThreshold, protocol.MaxThreshold)
	}
	if c.Resource == "" {
		return errors.New("resource must not be empty")
	}
	if c.ReceiveTimeout <= 0 {
		return errors.New("receive_timeout must be positive")
	}
	return nil
}

// OutputPath is where the received resource is written.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return "client_" + filepath.Base(c.Resource)
}
