package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/rescp17/slidingftp/pkg/resource"
	"github.com/rescp17/slidingftp/pkg/transfer"
	"github.com/rescp17/slidingftp/pkg/transport"
)

// Reasons carried by the Error messages the server sends.
const (
	ReasonBusy     = "busy"
	ReasonTimeout  = "timeout"
	ReasonShutdown = "server shutting down"
)

// Server serves one client session at a time over a datagram Conn.
type Server struct {
	conn    transport.Conn
	cfg     *Config
	codec   protocol.Codec
	session *Session

	completed int
}

func New(conn transport.Conn, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		conn:    conn,
		cfg:     cfg,
		codec:   protocol.NewJSONCodec(),
		session: idleSession(),
	}
}

// Serve handles datagrams until ctx is cancelled or the Conn is closed.
// Session failures never end the loop. On cancellation a bound client is
// told the server is shutting down, so the Conn must still be open then.
func (s *Server) Serve(ctx context.Context) error {
	slog.Info("Serving", "addr", s.conn.LocalAddr().String(), "root", s.cfg.Root)
	for {
		if ctx.Err() != nil {
			s.abandon(ReasonShutdown)
			return nil
		}

		res := s.conn.Receive(s.cfg.ControlTimeout)
		if ctx.Err() != nil {
			continue
		}
		switch res.Status {
		case transport.TimedOut:
			s.handleControlTimeout()
		case transport.Failed:
			if errors.Is(res.Err, net.ErrClosed) {
				slog.Info("Connection closed, server stopping")
				return nil
			}
			slog.Warn("Receive failed", "error", res.Err)
		case transport.Received:
			s.handleDatagram(ctx, res)
		}
	}
}

// Session returns a copy of the current session.
func (s *Server) Session() Session {
	return *s.session
}

// Completed counts transfers that ended with End.
func (s *Server) Completed() int {
	return s.completed
}

func (s *Server) handleControlTimeout() {
	if !s.session.Bound() {
		return
	}
	s.session.log.Warn("Client went silent", "phase", s.session.Phase, "timeout", s.cfg.ControlTimeout)
	s.notify(s.session.Remote, protocol.NewError(ReasonTimeout))
	s.reset()
}

func (s *Server) handleDatagram(ctx context.Context, res transport.Result) {
	from := res.From
	if s.session.Bound() && !s.session.Owns(from) {
		slog.Info("Rejected datagram from second client", "from", from.String(), "bound", s.session.Remote.String())
		s.notify(from, protocol.NewError(ReasonBusy))
		return
	}

	msg, err := s.codec.Decode(res.Payload)
	if err != nil {
		slog.Warn("Failed to decode datagram", "from", from.String(), "error", err)
		s.notify(from, protocol.NewError(err.Error()))
		// Only a bound client can reach here while a session is open.
		s.reset()
		return
	}
	slog.Debug("Received", "from", from.String(), "message", msg)

	if !s.session.Phase.Expected().Contains(msg.Type) {
		err := fmt.Errorf("%w: %s while %s, expected %s", protocol.ErrUnexpectedType, msg.Type, s.session.Phase, s.session.Phase.Expected())
		slog.Warn("Protocol violation", "from", from.String(), "error", err)
		s.notify(from, protocol.NewError(err.Error()))
		s.reset()
		return
	}

	switch msg.Type {
	case protocol.Hello:
		s.handleHello(from, msg)
	case protocol.RequestData:
		s.handleRequest(ctx, msg)
	case protocol.Error:
		s.handlePeerError(from, msg)
	}
}

func (s *Server) handleHello(from net.Addr, msg protocol.Message) {
	threshold, err := protocol.ParseThreshold(msg.Content)
	if err != nil {
		slog.Warn("Rejected Hello", "from", from.String(), "error", err)
		s.notify(from, protocol.NewError(err.Error()))
		return
	}

	s.session = bindSession(from, threshold)
	s.session.log.Info("Session started", "threshold", threshold)
	if err := s.send(from, protocol.NewWelcome()); err != nil {
		s.session.log.Error("Failed to send Welcome", "error", err)
		s.reset()
	}
}

func (s *Server) handleRequest(ctx context.Context, msg protocol.Message) {
	sess := s.session
	res, err := resource.Locate(s.cfg.Root, msg.Content)
	if err != nil {
		sess.log.Warn("Requested resource unavailable", "resource", msg.Content, "category", protocol.Categorize(err), "error", err)
		s.notify(sess.Remote, protocol.NewError(err.Error()))
		s.reset()
		return
	}

	sess.Resource = res.Name
	sess.Phase = Transferring
	sess.log.Info("Transfer starting",
		"resource", res.Name, "size", res.Size, "mime", res.MimeType, "sha256", res.Checksum)

	stats, err := s.transfer(ctx, res)
	if err != nil && ctx.Err() != nil {
		sess.log.Info("Transfer interrupted by shutdown", "chunks", stats.Chunks)
		s.abandon(ReasonShutdown)
		return
	}
	if err != nil {
		s.endWithError(err)
		return
	}

	if err := s.send(sess.Remote, protocol.NewEnd()); err != nil {
		sess.log.Error("Failed to send End", "error", err)
		s.reset()
		return
	}
	s.completed++
	sess.log.Info("Transfer complete",
		"chunks", stats.Chunks,
		"bytes", stats.Bytes,
		"rounds", stats.Rounds,
		"timeouts", stats.Timeouts,
		"retransmissions", stats.Retransmissions,
		"window_history", stats.WindowHistory,
		"elapsed", time.Since(sess.StartedAt).Round(time.Millisecond))
	s.reset()
}

func (s *Server) transfer(ctx context.Context, res resource.Resource) (transfer.Stats, error) {
	f, err := res.Open()
	if err != nil {
		return transfer.Stats{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()

	link := &sessionLink{server: s, session: s.session}
	sender := transfer.NewSender(link, s.session.Threshold, &s.cfg.Transfer, s.session.log)
	return sender.Send(ctx, f)
}

// endWithError tells the client why the transfer stopped, unless it already
// knows, and returns to Idle.
func (s *Server) endWithError(err error) {
	sess := s.session
	sess.log.Warn("Transfer aborted", "category", protocol.Categorize(err), "error", err)

	var notified *notifiedError
	var peerErr *protocol.PeerError
	if !errors.As(err, &notified) && !errors.As(err, &peerErr) {
		s.notify(sess.Remote, protocol.NewError(err.Error()))
	}
	s.reset()
}

func (s *Server) handlePeerError(from net.Addr, msg protocol.Message) {
	if !s.session.Bound() {
		slog.Info("Ignoring Error from unbound client", "from", from.String(), "reason", msg.Content)
		return
	}
	s.session.log.Warn("Client ended session", "phase", s.session.Phase, "reason", msg.Content)
	s.reset()
}

// abandon tells a bound client the session is over.
func (s *Server) abandon(reason string) {
	if s.session.Bound() {
		s.notify(s.session.Remote, protocol.NewError(reason))
		s.reset()
	}
}

func (s *Server) reset() {
	if s.session.Bound() {
		s.session.log.Debug("Session reset", "phase", s.session.Phase)
	}
	s.session = idleSession()
}

func (s *Server) send(to net.Addr, msg protocol.Message) error {
	payload, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.conn.Send(payload, to); err != nil {
		return err
	}
	slog.Debug("Sent", "to", to.String(), "message", msg)
	return nil
}

// notify sends best-effort; a failure is logged and otherwise ignored.
func (s *Server) notify(to net.Addr, msg protocol.Message) {
	if err := s.send(to, msg); err != nil {
		slog.Warn("Failed to notify peer", "to", to.String(), "message", msg, "error", err)
	}
}
