package client

import (
	appevents "github.com/rescp17/slidingftp/internal/app_events"
)

// HandshakeCompleteMsg is sent once the server has welcomed the client and the resource was requested.
type HandshakeCompleteMsg struct {
	appevents.UIMessage
	Server    string
	Resource  string
	Threshold int
}

// ChunkReceivedMsg is sent for every accepted chunk.
type ChunkReceivedMsg struct {
	appevents.UIMessage
	ID     string
	Chunks int
	Bytes  int64
}

// TransferFinishedMsg is the last message of a run. Err is nil after End.
type TransferFinishedMsg struct {
	appevents.UIMessage
	Chunks int
	Bytes  int64
	Err    error
}
