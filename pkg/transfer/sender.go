package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rescp17/slidingftp/pkg/protocol"
)

// AckStatus tells the sender what ended one wait for an acknowledgment.
type AckStatus int

const (
	AckReceived AckStatus = iota
	AckTimedOut
)

type AckResult struct {
	Status AckStatus
	ID     string
}

// Link is the sender's view of the session it runs in.
type Link interface {
	// SendData transmits one Data message to the bound client.
	SendData(ctx context.Context, msg protocol.Message) error
	// AwaitAck waits up to timeout for the next Ack from the bound client.
	// Any returned error aborts the transfer.
	AwaitAck(ctx context.Context, timeout time.Duration) (AckResult, error)
}

// Stats summarises one transfer.
type Stats struct {
	Chunks          int   `json:"chunks"`
	Bytes           int64 `json:"bytes"`
	Rounds          int   `json:"rounds"`
	Timeouts        int   `json:"timeouts"`
	Retransmissions int   `json:"retransmissions"`
	StaleAcks       int   `json:"stale_acks"`
	WindowHistory   []int `json:"window_history"`
}

// Sender pushes one resource to the client in rounds of up to window-size
// chunks, waiting for every chunk of a round to be acknowledged before the
// next round starts.
type Sender struct {
	link     Link
	config   *Config
	window   *Window
	inFlight []protocol.Message
	unacked  map[string]struct{}
	stats    Stats
	log      *slog.Logger
}

func NewSender(link Link, threshold int, config *Config, logger *slog.Logger) *Sender {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		link:    link,
		config:  config,
		window:  NewWindow(threshold),
		unacked: make(map[string]struct{}),
		log:     logger,
	}
}

// Send streams r to the client until it is exhausted and every chunk has
// been acknowledged.
func (s *Sender) Send(ctx context.Context, r io.Reader) (Stats, error) {
	chunker, err := NewChunker(r, s.config.ChunkChars)
	if err != nil {
		return s.snapshot(), err
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.snapshot(), err
		}

		budget := s.window.Open()
		if err := s.fill(ctx, chunker, budget); err != nil {
			return s.snapshot(), err
		}
		if len(s.inFlight) == 0 {
			s.log.Info("All data sent", "chunks", s.stats.Chunks, "bytes", s.stats.Bytes)
			return s.snapshot(), nil
		}

		s.stats.Rounds++
		s.stats.WindowHistory = append(s.stats.WindowHistory, budget)
		s.log.Debug("Round sent", "round", s.stats.Rounds, "window", budget, "chunks", len(s.inFlight))

		lossy, err := s.collectAcks(ctx)
		if err != nil {
			return s.snapshot(), err
		}

		if lossy {
			s.log.Info("Round had timeouts, window stays at 1", "round", s.stats.Rounds)
		} else {
			s.window.Grow()
			s.log.Debug("All chunks acknowledged, doubling window", "next", s.window.Size())
		}
	}
}

// fill reads up to budget chunks, sends each and records it as in flight.
func (s *Sender) fill(ctx context.Context, chunker *Chunker, budget int) error {
	s.inFlight = s.inFlight[:0]
	clear(s.unacked)

	for len(s.inFlight) < budget {
		chunk, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read resource: %w", err)
		}

		msg := protocol.NewData(chunk.ID, chunk.Payload)
		if err := s.link.SendData(ctx, msg); err != nil {
			return err
		}
		s.inFlight = append(s.inFlight, msg)
		s.unacked[chunk.ID] = struct{}{}
		s.stats.Chunks++
		s.stats.Bytes += int64(len(chunk.Payload))
	}
	return nil
}

// collectAcks waits until every in-flight chunk is acknowledged and reports
// whether any wait timed out.
func (s *Sender) collectAcks(ctx context.Context) (bool, error) {
	lossy := false
	for len(s.unacked) > 0 {
		res, err := s.link.AwaitAck(ctx, s.config.AckTimeout)
		if err != nil {
			return lossy, err
		}

		switch res.Status {
		case AckReceived:
			if _, ok := s.unacked[res.ID]; !ok {
				s.stats.StaleAcks++
				s.log.Debug("Ack for unknown id ignored", "id", res.ID)
				continue
			}
			delete(s.unacked, res.ID)
			s.log.Debug("Ack received", "id", res.ID, "pending", len(s.unacked))
		case AckTimedOut:
			lossy = true
			s.stats.Timeouts++
			s.window.Reset()
			s.log.Info("Ack timeout, resending unacknowledged chunks", "pending", len(s.unacked))
			if err := s.resend(ctx); err != nil {
				return lossy, err
			}
		}
	}
	return lossy, nil
}

// resend retransmits unacknowledged chunks in send order, at most window-size of them.
func (s *Sender) resend(ctx context.Context) error {
	sent := 0
	for _, msg := range s.inFlight {
		if sent >= s.window.Size() {
			break
		}
		id, _, err := protocol.SplitChunk(msg.Content)
		if err != nil {
			continue
		}
		if _, ok := s.unacked[id]; !ok {
			continue
		}
		if err := s.link.SendData(ctx, msg); err != nil {
			return err
		}
		sent++
		s.stats.Retransmissions++
		s.log.Debug("Chunk resent", "id", id)
	}
	return nil
}

// Window exposes the window for inspection.
func (s *Sender) Window() *Window {
	return s.window
}

func (s *Sender) snapshot() Stats {
	out := s.stats
	out.WindowHistory = append([]int(nil), s.stats.WindowHistory...)
	return out
}
