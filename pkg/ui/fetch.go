package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	clientevents "github.com/rescp17/slidingftp/internal/app_events/client"
	"github.com/rescp17/slidingftp/internal/style"
	"github.com/rescp17/slidingftp/internal/util"
)

// fetchState defines the different states of the fetch view
type fetchState int

const (
	connecting fetchState = iota
	receiving
	fetchComplete
	fetchFailed
)

const nameWidth = 40

// messagesClosedMsg is produced once the client closes its message channel.
type messagesClosedMsg struct{}

// FetchModel shows the progress of one client run.
type FetchModel struct {
	state     fetchState
	spinner   spinner.Model
	messages  <-chan tea.Msg
	server    string
	resource  string
	threshold int
	chunks    int
	bytes     int64
	lastID    string
	err       error
}

func NewFetchModel(server, resource string, messages <-chan tea.Msg) FetchModel {
	return FetchModel{
		state:    connecting,
		spinner:  style.NewSpinner(),
		messages: messages,
		server:   server,
		resource: resource,
	}
}

func (m FetchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForAppMessages())
}

// listenForAppMessages is a command that waits for the next message from the client.
func (m FetchModel) listenForAppMessages() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.messages
		if !ok {
			return messagesClosedMsg{}
		}
		return msg
	}
}

func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	case clientevents.HandshakeCompleteMsg:
		m.state = receiving
		m.server = msg.Server
		m.threshold = msg.Threshold
		return m, m.listenForAppMessages()
	case clientevents.ChunkReceivedMsg:
		m.state = receiving
		m.chunks = msg.Chunks
		m.bytes = msg.Bytes
		m.lastID = msg.ID
		return m, m.listenForAppMessages()
	case clientevents.TransferFinishedMsg:
		m.chunks = msg.Chunks
		m.bytes = msg.Bytes
		m.err = msg.Err
		if msg.Err != nil {
			m.state = fetchFailed
		} else {
			m.state = fetchComplete
		}
		return m, tea.Quit
	case messagesClosedMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m FetchModel) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("slidingftp") + "\n\n")

	row := func(label, value string) {
		b.WriteString(style.LabelStyle.Render(util.PadRight(label, 10)))
		b.WriteString(style.ValueStyle.Render(value) + "\n")
	}
	row("server", m.server)
	row("resource", util.TruncateWidth(m.resource, nameWidth))
	if m.threshold > 0 {
		row("threshold", fmt.Sprint(m.threshold))
	}
	row("chunks", fmt.Sprint(m.chunks))
	row("received", util.FormatSize(m.bytes))
	if m.lastID != "" {
		row("last id", m.lastID)
	}
	b.WriteString("\n")

	switch m.state {
	case connecting:
		b.WriteString(m.spinner.View() + " Waiting for the server to welcome us...")
	case receiving:
		b.WriteString(m.spinner.View() + " Receiving...")
	case fetchComplete:
		b.WriteString(style.SuccessStyle.Render("Transfer complete."))
	case fetchFailed:
		b.WriteString(style.ErrorStyle.Render(fmt.Sprintf("Transfer failed: %v", m.err)))
	}
	b.WriteString("\n\n" + style.HelpStyle.Render("q to quit") + "\n")

	return style.DocStyle.Render(style.BoxStyle.Render(b.String()))
}

// Err returns the failure the run ended with, if any.
func (m FetchModel) Err() error {
	return m.err
}
