package protocol

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
)

var (
	ErrMalformed        = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMissingContent   = errors.New("message content missing")
	ErrUnexpectedType   = errors.New("unexpected message type")
	ErrShortChunk       = errors.New("data content shorter than chunk id")
	ErrDuplicateChunk   = errors.New("duplicate chunk id")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrNotFound         = errors.New("resource not found")
	ErrNotText          = errors.New("resource is not UTF-8 text")
	ErrBusy             = errors.New("server is in a session with another client")
	ErrTimeout          = errors.New("timed out waiting for message")
)

// DecodeError is returned by a Codec when bytes do not form a valid message.
type DecodeError struct {
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return "decode: " + e.Err.Error()
	}
	return "decode: " + e.Err.Error() + ": " + e.Detail
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// PeerError reports an Error message received from the remote side.
type PeerError struct {
	Reason string
}

func (e *PeerError) Error() string {
	return "peer reported error: " + e.Reason
}

// Category groups failures by how a session reacts to them.
type Category int

const (
	CategoryNone Category = iota
	CategoryProtocolViolation
	CategoryNotFound
	CategoryTimeout
	CategoryDuplicate
	CategoryBusy
	CategoryPeer
	CategoryTransport
	CategoryLocalIO
	CategoryCancelled
	CategoryUnknown
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryProtocolViolation:
		return "protocol_violation"
	case CategoryNotFound:
		return "not_found"
	case CategoryTimeout:
		return "timeout"
	case CategoryDuplicate:
		return "duplicate"
	case CategoryBusy:
		return "busy"
	case CategoryPeer:
		return "peer"
	case CategoryTransport:
		return "transport"
	case CategoryLocalIO:
		return "local_io"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Categorize maps an error onto the failure taxonomy.
func Categorize(err error) Category {
	if err == nil {
		return CategoryNone
	}

	var decodeErr *DecodeError
	var peerErr *PeerError
	var netErr net.Error
	var pathErr *fs.PathError

	switch {
	case errors.As(err, &peerErr):
		return CategoryPeer
	case errors.Is(err, ErrDuplicateChunk):
		return CategoryDuplicate
	case errors.As(err, &decodeErr),
		errors.Is(err, ErrUnexpectedType),
		errors.Is(err, ErrMissingContent),
		errors.Is(err, ErrMalformed),
		errors.Is(err, ErrUnknownType),
		errors.Is(err, ErrInvalidThreshold):
		return CategoryProtocolViolation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotText):
		return CategoryNotFound
	case errors.Is(err, ErrBusy):
		return CategoryBusy
	case errors.Is(err, ErrTimeout), errors.Is(err, os.ErrDeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryCancelled
	case errors.As(err, &netErr), errors.Is(err, net.ErrClosed):
		return CategoryTransport
	case errors.As(err, &pathErr):
		return CategoryLocalIO
	}
	return CategoryUnknown
}

// Process exit codes used by the client.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitProtocolViolation = 2
	ExitDuplicate         = 3
	ExitTimeout           = 4
	ExitLocalIO           = 5
)

// ExitCode picks the process exit status for the outcome of a run.
func ExitCode(err error) int {
	switch Categorize(err) {
	case CategoryNone:
		return ExitOK
	case CategoryProtocolViolation:
		return ExitProtocolViolation
	case CategoryDuplicate:
		return ExitDuplicate
	case CategoryTimeout, CategoryTransport:
		return ExitTimeout
	case CategoryLocalIO:
		return ExitLocalIO
	default:
		return ExitFailure
	}
}
