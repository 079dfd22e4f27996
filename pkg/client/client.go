package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	clientevents "github.com/rescp17/slidingftp/internal/app_events/client"
	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/rescp17/slidingftp/pkg/transport"
)

// ReasonCancelled is sent to the server when the run is cancelled locally.
const ReasonCancelled = "client cancelled"

// Client runs one handshake, request and receive cycle against a server.
type Client struct {
	conn       transport.Conn
	server     net.Addr
	cfg        *Config
	codec      protocol.Codec
	phase      Phase
	tracker    *Tracker
	uiMessages chan<- tea.Msg
	log        *slog.Logger
}

// New creates a client that writes accepted payloads to sink. uiMessages may
// be nil when no TUI is attached.
func New(conn transport.Conn, server net.Addr, sink io.Writer, cfg *Config, uiMessages chan<- tea.Msg) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{
		conn:       conn,
		server:     server,
		cfg:        cfg,
		codec:      protocol.NewJSONCodec(),
		phase:      Start,
		tracker:    NewTracker(sink),
		uiMessages: uiMessages,
		log:        slog.With("run", uuid.NewString(), "server", server.String()),
	}
}

// Run drives the session to End or to the first failure. The returned error
// maps onto an exit status through protocol.ExitCode.
func (c *Client) Run(ctx context.Context) error {
	c.log.Info("Requesting session", "threshold", c.cfg.Threshold, "resource", c.cfg.Resource)
	if err := c.send(protocol.NewHello(c.cfg.Threshold)); err != nil {
		return c.finish(ctx, err)
	}
	c.phase = AwaitingWelcome

	for {
		if err := ctx.Err(); err != nil {
			c.notify(protocol.NewError(ReasonCancelled))
			return c.finish(ctx, err)
		}

		res := c.conn.Receive(c.cfg.ReceiveTimeout)
		switch res.Status {
		case transport.TimedOut:
			return c.finish(ctx, fmt.Errorf("%w: nothing received for %s while %s", protocol.ErrTimeout, c.cfg.ReceiveTimeout, c.phase))
		case transport.Failed:
			return c.finish(ctx, fmt.Errorf("receive: %w", res.Err))
		}

		msg, err := c.codec.Decode(res.Payload)
		if err != nil {
			c.log.Warn("Failed to decode datagram", "error", err)
			c.notify(protocol.NewError(err.Error()))
			return c.finish(ctx, err)
		}
		c.log.Debug("Received", "message", msg)

		if !c.phase.Expected().Contains(msg.Type) {
			err := fmt.Errorf("%w: %s while %s", protocol.ErrUnexpectedType, msg.Type, c.phase)
			c.notify(protocol.NewError(err.Error()))
			return c.finish(ctx, err)
		}

		switch msg.Type {
		case protocol.Welcome:
			if err := c.send(protocol.NewRequestData(c.cfg.Resource)); err != nil {
				return c.finish(ctx, err)
			}
			c.phase = AwaitingData
			c.log.Info("Session established, resource requested")
			c.emit(clientevents.HandshakeCompleteMsg{
				Server:    c.server.String(),
				Resource:  c.cfg.Resource,
				Threshold: c.cfg.Threshold,
			})
		case protocol.Data:
			if err := c.handleData(msg.Content); err != nil {
				return c.finish(ctx, err)
			}
		case protocol.End:
			c.log.Info("Transfer complete", "chunks", c.tracker.Count(), "bytes", c.tracker.Bytes())
			return c.finish(ctx, nil)
		case protocol.Error:
			return c.finish(ctx, &protocol.PeerError{Reason: msg.Content})
		}
	}
}

func (c *Client) handleData(content string) error {
	id, err := c.tracker.Accept(content)
	switch {
	case errors.Is(err, protocol.ErrShortChunk):
		c.log.Warn("Dropping Data without chunk id", "content", content)
		return nil
	case errors.Is(err, protocol.ErrDuplicateChunk):
		c.notify(protocol.NewError(err.Error()))
		return err
	case err != nil:
		c.notify(protocol.NewError("client failed to write output"))
		return fmt.Errorf("write chunk %s: %w", id, err)
	}

	if err := c.send(protocol.NewAck(id)); err != nil {
		return err
	}
	c.emit(clientevents.ChunkReceivedMsg{ID: id, Chunks: c.tracker.Count(), Bytes: c.tracker.Bytes()})
	return nil
}

// Phase reports where the client stands.
func (c *Client) Phase() Phase {
	return c.phase
}

// Received reports the accepted chunk count and payload bytes.
func (c *Client) Received() (int, int64) {
	return c.tracker.Count(), c.tracker.Bytes()
}

func (c *Client) finish(ctx context.Context, err error) error {
	c.phase = Terminated
	if err != nil {
		c.log.Error("Session failed", "category", protocol.Categorize(err), "error", err)
	}
	if c.uiMessages == nil {
		return err
	}
	done := clientevents.TransferFinishedMsg{Chunks: c.tracker.Count(), Bytes: c.tracker.Bytes(), Err: err}
	select {
	case c.uiMessages <- done:
		return err
	default:
	}
	select {
	case c.uiMessages <- done:
	case <-ctx.Done():
	}
	return err
}

// emit drops progress updates the UI is too slow to take.
func (c *Client) emit(msg tea.Msg) {
	if c.uiMessages == nil {
		return
	}
	select {
	case c.uiMessages <- msg:
	default:
	}
}

func (c *Client) send(msg protocol.Message) error {
	payload, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	if err := c.conn.Send(payload, c.server); err != nil {
		return err
	}
	c.log.Debug("Sent", "message", msg)
	return nil
}

// notify sends best-effort; a failure is logged and otherwise ignored.
func (c *Client) notify(msg protocol.Message) {
	if err := c.send(msg); err != nil {
		c.log.Warn("Failed to notify server", "message", msg, "error", err)
	}
}
