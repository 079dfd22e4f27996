// Package transporttest provides a scripted transport.Conn for driving the
// session state machines without sockets.
package transporttest

import (
	"net"
	"sync"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/rescp17/slidingftp/pkg/transport"
)

// Datagram is one payload written through the Conn.
type Datagram struct {
	To      net.Addr
	Payload []byte
}

// Conn replays queued results on Receive and records every Send. An empty
// queue reads as a timeout; after MaxIdleReads consecutive timeouts the Conn
// reports itself closed, which ends a serve loop.
type Conn struct {
	mu sync.Mutex

	local        net.Addr
	codec        protocol.Codec
	inbox        []transport.Result
	sent         []Datagram
	idleReads    int
	closed       bool
	MaxIdleReads int

	// OnSend runs after every Send, outside the lock, so it may Deliver replies.
	OnSend func(c *Conn, d Datagram)
	// SendErr, when set, is returned by every Send.
	SendErr error
}

func New(local net.Addr) *Conn {
	return &Conn{
		local:        local,
		codec:        protocol.NewJSONCodec(),
		MaxIdleReads: 3,
	}
}

// Addr is a loopback endpoint with the given port.
func Addr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

// Deliver queues a raw datagram from the given endpoint.
func (c *Conn) Deliver(from net.Addr, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, transport.Result{Status: transport.Received, Payload: payload, From: from})
}

// DeliverMessage queues an encoded message from the given endpoint.
func (c *Conn) DeliverMessage(from net.Addr, msg protocol.Message) {
	payload, err := c.codec.Encode(msg)
	if err != nil {
		panic(err)
	}
	c.Deliver(from, payload)
}

// DeliverTimeout queues an explicit timeout.
func (c *Conn) DeliverTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, transport.Result{Status: transport.TimedOut})
}

// DeliverFailure queues a transport failure.
func (c *Conn) DeliverFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, transport.Result{Status: transport.Failed, Err: err})
}

func (c *Conn) Send(payload []byte, to net.Addr) error {
	c.mu.Lock()
	if c.SendErr != nil {
		c.mu.Unlock()
		return c.SendErr
	}
	d := Datagram{To: to, Payload: append([]byte(nil), payload...)}
	c.sent = append(c.sent, d)
	hook := c.OnSend
	c.mu.Unlock()

	if hook != nil {
		hook(c, d)
	}
	return nil
}

func (c *Conn) Receive(_ time.Duration) transport.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return transport.Result{Status: transport.Failed, Err: net.ErrClosed}
	}
	if len(c.inbox) > 0 {
		res := c.inbox[0]
		c.inbox = c.inbox[1:]
		c.idleReads = 0
		return res
	}
	c.idleReads++
	if c.MaxIdleReads > 0 && c.idleReads > c.MaxIdleReads {
		c.closed = true
		return transport.Result{Status: transport.Failed, Err: net.ErrClosed}
	}
	return transport.Result{Status: transport.TimedOut}
}

func (c *Conn) LocalAddr() net.Addr {
	return c.local
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Sent returns every message written so far, decoded, optionally filtered by destination.
func (c *Conn) Sent(to net.Addr) []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []protocol.Message
	for _, d := range c.sent {
		if to != nil && !transport.SameEndpoint(d.To, to) {
			continue
		}
		msg, err := c.codec.Decode(d.Payload)
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Decode decodes a datagram written by the code under test.
func (c *Conn) Decode(d Datagram) protocol.Message {
	msg, err := c.codec.Decode(d.Payload)
	if err != nil {
		panic(err)
	}
	return msg
}
