package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

var ErrChecksumMismatch = errors.New("checksum mismatch")

// FileChecksum returns the hex SHA-256 of the file at path.
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()
	return Checksum(file)
}

// Checksum returns the hex SHA-256 of everything read from r.
func Checksum(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Inspect returns the hex SHA-256 of r and whether all of it is valid UTF-8.
func Inspect(r io.Reader) (string, bool, error) {
	hasher := sha256.New()
	text := &utf8Checker{valid: true}
	if _, err := io.Copy(io.MultiWriter(hasher, text), r); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), text.Valid(), nil
}

// utf8Checker validates a byte stream written in arbitrary pieces.
type utf8Checker struct {
	pending []byte // start of a rune split across writes
	valid   bool
}

func (c *utf8Checker) Write(p []byte) (int, error) {
	if !c.valid {
		return len(p), nil
	}
	buf := append(c.pending, p...)

	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i > len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}
	if !utf8.Valid(buf[:cut]) {
		c.valid = false
	}
	c.pending = append(c.pending[:0], buf[cut:]...)
	return len(p), nil
}

func (c *utf8Checker) Valid() bool {
	return c.valid && len(c.pending) == 0
}

// Verify reports whether the file at path has the expected checksum.
func Verify(path, expected string) (bool, error) {
	actual, err := FileChecksum(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
