package server

import "github.com/rescp17/slidingftp/pkg/protocol"

// Phase is where the server session stands in the Hello / RequestData / transfer cycle.
type Phase int

const (
	Idle Phase = iota
	AwaitingRequest
	Transferring
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingRequest:
		return "awaiting_request"
	case Transferring:
		return "transferring"
	default:
		return "unknown"
	}
}

// Expected is the admission filter of the phase: the message types it accepts.
func (p Phase) Expected() protocol.TypeSet {
	switch p {
	case Idle:
		return protocol.NewTypeSet(protocol.Hello, protocol.Error)
	case AwaitingRequest:
		return protocol.NewTypeSet(protocol.RequestData, protocol.Error)
	case Transferring:
		return protocol.NewTypeSet(protocol.Ack, protocol.Error)
	default:
		return 0
	}
}
