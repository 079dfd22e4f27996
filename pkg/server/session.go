package server

import (
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rescp17/slidingftp/pkg/transport"
)

// Session is the single client the server is bound to. An idle session has
// no remote endpoint.
type Session struct {
	ID        string
	Remote    net.Addr
	Phase     Phase
	Threshold int
	Resource  string
	StartedAt time.Time

	log *slog.Logger
}

func idleSession() *Session {
	return &Session{Phase: Idle, log: slog.Default()}
}

func bindSession(remote net.Addr, threshold int) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Remote:    remote,
		Phase:     AwaitingRequest,
		Threshold: threshold,
		StartedAt: time.Now(),
		log:       slog.With("session", id, "client", remote.String()),
	}
}

// Bound reports whether a client currently owns the session.
func (s *Session) Bound() bool {
	return s.Remote != nil
}

// Owns reports whether addr is the bound client.
func (s *Session) Owns(addr net.Addr) bool {
	return s.Bound() && transport.SameEndpoint(s.Remote, addr)
}
