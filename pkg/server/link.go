package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/rescp17/slidingftp/pkg/transfer"
	"github.com/rescp17/slidingftp/pkg/transport"
)

// notifiedError marks a failure the client has already been told about.
type notifiedError struct {
	err error
}

func (e *notifiedError) Error() string { return e.err.Error() }
func (e *notifiedError) Unwrap() error { return e.err }

// sessionLink runs a transfer over the server's Conn on behalf of the bound session.
type sessionLink struct {
	server  *Server
	session *Session
}

func (l *sessionLink) SendData(_ context.Context, msg protocol.Message) error {
	return l.server.send(l.session.Remote, msg)
}

// AwaitAck reads until an Ack from the bound client arrives or timeout
// elapses. Other clients are answered busy without consuming the wait.
func (l *sessionLink) AwaitAck(ctx context.Context, timeout time.Duration) (transfer.AckResult, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return transfer.AckResult{}, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return transfer.AckResult{Status: transfer.AckTimedOut}, nil
		}

		res := l.server.conn.Receive(remaining)
		if err := ctx.Err(); err != nil {
			return transfer.AckResult{}, err
		}
		switch res.Status {
		case transport.TimedOut:
			return transfer.AckResult{Status: transfer.AckTimedOut}, nil
		case transport.Failed:
			return transfer.AckResult{}, fmt.Errorf("await ack: %w", res.Err)
		}

		if !l.session.Owns(res.From) {
			slog.Info("Rejected datagram from second client", "from", res.From.String())
			l.server.notify(res.From, protocol.NewError(ReasonBusy))
			continue
		}

		msg, err := l.server.codec.Decode(res.Payload)
		if err != nil {
			return transfer.AckResult{}, l.violation(err)
		}
		if !Transferring.Expected().Contains(msg.Type) {
			return transfer.AckResult{}, l.violation(fmt.Errorf("%w: %s during transfer", protocol.ErrUnexpectedType, msg.Type))
		}
		if msg.Type == protocol.Error {
			return transfer.AckResult{}, &protocol.PeerError{Reason: msg.Content}
		}

		id, ok := protocol.AckID(msg.Content)
		if !ok {
			l.session.log.Warn("Ignoring Ack without chunk id", "content", msg.Content)
			continue
		}
		slog.Debug("Received", "from", res.From.String(), "message", msg)
		return transfer.AckResult{Status: transfer.AckReceived, ID: id}, nil
	}
}

// violation reports err to the client and marks it as reported.
func (l *sessionLink) violation(err error) error {
	l.server.notify(l.session.Remote, protocol.NewError(err.Error()))
	return &notifiedError{err: err}
}
