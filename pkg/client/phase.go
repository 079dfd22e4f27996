package client

import "github.com/rescp17/slidingftp/pkg/protocol"

type Phase int

const (
	Start Phase = iota
	AwaitingWelcome
	AwaitingData
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Start:
		return "start"
	case AwaitingWelcome:
		return "awaiting_welcome"
	case AwaitingData:
		return "awaiting_data"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Expected lists the message types the client accepts in this phase.
func (p Phase) Expected() protocol.TypeSet {
	switch p {
	case AwaitingWelcome:
		return protocol.NewTypeSet(protocol.Welcome, protocol.Error)
	case AwaitingData:
		return protocol.NewTypeSet(protocol.Data, protocol.End, protocol.Error)
	default:
		return 0
	}
}
