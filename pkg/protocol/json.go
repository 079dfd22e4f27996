package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Codec turns messages into datagram payloads and back.
type Codec interface {
	Encode(msg Message) ([]byte, error)
	Decode(data []byte) (Message, error)
	Name() string
}

// JSONCodec encodes a message as {"Type":"<name>","Content":"<text>"}.
type JSONCodec struct{}

func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

type jsonMessage struct {
	Type    string `json:"Type"`
	Content string `json:"Content"`
}

// wireMessage keeps Type raw so both names and ordinals can be read, and
// Content as a pointer so null and absent are told apart from "".
type wireMessage struct {
	Type    json.RawMessage `json:"Type"`
	Content *string         `json:"Content"`
}

func (c *JSONCodec) Encode(msg Message) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(msg.Type))
	}
	return json.Marshal(jsonMessage{
		Type:    msg.Type.String(),
		Content: msg.Content,
	})
}

func (c *JSONCodec) Decode(data []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, &DecodeError{Err: ErrMalformed, Detail: err.Error()}
	}

	msgType, err := decodeType(wire.Type)
	if err != nil {
		return Message{}, &DecodeError{Err: err, Detail: string(wire.Type)}
	}

	if wire.Content == nil {
		return Message{Type: msgType}, &DecodeError{Err: ErrMissingContent, Detail: msgType.String()}
	}

	return Message{Type: msgType, Content: *wire.Content}, nil
}

func (c *JSONCodec) Name() string {
	return "json"
}

func decodeType(raw json.RawMessage) (MessageType, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, ErrMalformed
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return 0, ErrMalformed
		}
		return ParseMessageType(name)
	}

	// Peers that serialise the enum numerically send its ordinal.
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownType, raw)
	}
	t := MessageType(n)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownType, n)
	}
	return t, nil
}
