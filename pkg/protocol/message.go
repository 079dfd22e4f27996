package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageType is the closed set of message kinds exchanged between client and server.
type MessageType int

const (
	Hello MessageType = iota
	Welcome
	RequestData
	Data
	Ack
	End
	Error
)

var typeNames = [...]string{
	Hello:       "Hello",
	Welcome:     "Welcome",
	RequestData: "RequestData",
	Data:        "Data",
	Ack:         "Ack",
	End:         "End",
	Error:       "Error",
}

// String returns the wire name of the message type.
func (t MessageType) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return "MessageType(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the seven recognised types.
func (t MessageType) Valid() bool {
	return t >= Hello && t <= Error
}

// ParseMessageType resolves a wire name to its MessageType.
func ParseMessageType(name string) (MessageType, error) {
	for i, n := range typeNames {
		if n == name {
			return MessageType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// TypeSet is a set of message types, used as the admission filter of a session phase.
type TypeSet uint8

// NewTypeSet builds a set from the given types.
func NewTypeSet(types ...MessageType) TypeSet {
	var s TypeSet
	for _, t := range types {
		if t.Valid() {
			s |= 1 << uint(t)
		}
	}
	return s
}

// Contains reports whether t is in the set.
func (s TypeSet) Contains(t MessageType) bool {
	return t.Valid() && s&(1<<uint(t)) != 0
}

// Types lists the members in declaration order.
func (s TypeSet) Types() []MessageType {
	var out []MessageType
	for t := Hello; t <= Error; t++ {
		if s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TypeSet) String() string {
	names := make([]string, 0, len(typeNames))
	for _, t := range s.Types() {
		names = append(names, t.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Message is the unit carried by one datagram.
type Message struct {
	Type    MessageType
	Content string
}

func (m Message) String() string {
	return fmt.Sprintf("%s(%q)", m.Type, m.Content)
}

// NewHello asks the server for a session whose window never exceeds threshold.
func NewHello(threshold int) Message {
	return Message{Type: Hello, Content: strconv.Itoa(threshold)}
}

// NewWelcome accepts a Hello.
func NewWelcome() Message {
	return Message{Type: Welcome}
}

// NewRequestData names the resource the client wants.
func NewRequestData(resource string) Message {
	return Message{Type: RequestData, Content: resource}
}

// NewData carries one chunk; id must already be formatted with FormatChunkID.
func NewData(id, payload string) Message {
	return Message{Type: Data, Content: id + payload}
}

// NewAck acknowledges the chunk with the given id.
func NewAck(id string) Message {
	return Message{Type: Ack, Content: id}
}

// NewEnd closes a successful transfer.
func NewEnd() Message {
	return Message{Type: End}
}

// NewError tells the peer the session is over because of reason.
func NewError(reason string) Message {
	return Message{Type: Error, Content: reason}
}

// ParseThreshold validates the content of a Hello.
func ParseThreshold(content string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(content))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidThreshold, content)
	}
	if n < MinThreshold || n > MaxThreshold {
		return 0, fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidThreshold, n, MinThreshold, MaxThreshold)
	}
	return n, nil
}
