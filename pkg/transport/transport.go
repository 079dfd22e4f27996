package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// MaxDatagramSize bounds a single receive. Encoded messages stay well below it.
const MaxDatagramSize = 2048

// Status is the outcome of one receive attempt.
type Status int

const (
	Received Status = iota
	TimedOut
	Failed
)

func (s Status) String() string {
	switch s {
	case Received:
		return "received"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result carries either a datagram, a timeout, or a transport error.
type Result struct {
	Status  Status
	Payload []byte
	From    net.Addr
	Err     error
}

// Conn is the datagram socket the session state machines run on.
type Conn interface {
	Send(payload []byte, to net.Addr) error
	// Receive blocks for at most timeout. A timeout is reported as a
	// TimedOut result, never as an error.
	Receive(timeout time.Duration) Result
	LocalAddr() net.Addr
	Close() error
}

// UDPConn is a Conn over an IPv4 UDP socket.
type UDPConn struct {
	conn        *net.UDPConn
	buf         []byte
	interrupted atomic.Bool
}

// Listen binds an IPv4 UDP socket on addr ("127.0.0.1:32000", "127.0.0.1:0", ...).
func Listen(addr string) (*UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return &UDPConn{
		conn: conn,
		buf:  make([]byte, MaxDatagramSize),
	}, nil
}

// ResolveAddr resolves an IPv4 UDP endpoint.
func ResolveAddr(addr string) (*net.UDPAddr, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	return udpAddr, nil
}

func (c *UDPConn) Send(payload []byte, to net.Addr) error {
	if _, err := c.conn.WriteTo(payload, to); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func (c *UDPConn) Receive(timeout time.Duration) Result {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("set read deadline: %w", err)}
	}
	if c.interrupted.Load() {
		return Result{Status: TimedOut}
	}

	n, from, err := c.conn.ReadFromUDP(c.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Result{Status: TimedOut}
		}
		return Result{Status: Failed, Err: err}
	}

	// buf is reused by the next call.
	payload := make([]byte, n)
	copy(payload, c.buf[:n])
	return Result{Status: Received, Payload: payload, From: from}
}

// Interrupt makes the pending and every later Receive time out at once.
// The socket stays open for sending.
func (c *UDPConn) Interrupt() {
	c.interrupted.Store(true)
	if err := c.conn.SetReadDeadline(time.Now()); err != nil {
		slog.Debug("Failed to interrupt receive", "error", err)
	}
}

func (c *UDPConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *UDPConn) Close() error {
	return c.conn.Close()
}

// SameEndpoint reports whether a and b name the same IP and port.
func SameEndpoint(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ua, okA := a.(*net.UDPAddr)
	ub, okB := b.(*net.UDPAddr)
	if okA && okB {
		return ua.IP.Equal(ub.IP) && ua.Port == ub.Port
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
