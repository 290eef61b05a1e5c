package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shoal-chat/shoal/internal/chat"
	"github.com/shoal-chat/shoal/internal/store"
)

// Update handles messages and updates the model (Bubbletea interface).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.snap = msg.snap
		// Keep listening for the lifetime of the program.
		return m, waitForSnapshot(m.snaps)

	case sendDoneMsg:
		m.snap = m.session.Snapshot()
		if msg.result.Outcome == chat.StreamInterrupted {
			m.status = "Response interrupted"
		}
		return m, nil

	case statusMsg:
		m.status = msg.text
		m.lastError = nil
		return m, nil

	case errorMsg:
		m.lastError = msg.err
		return m, nil
	}

	return m.updateInput(msg)
}

// handleKeyMsg handles keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.snap.Streaming {
			// First Ctrl+C stops the stream; the partial reply is kept.
			m.session.CancelStream()
			return m, nil
		}
		return m.quit()

	case "ctrl+d":
		return m.quit()

	case "esc":
		if m.snap.Streaming {
			m.session.CancelStream()
		}
		return m, nil

	case "ctrl+y":
		if reply := lastAssistantMessage(m.snap.Messages); reply != "" {
			return m, copyCmd(reply)
		}
		m.status = "Nothing to copy yet"
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		if m.snap.Streaming {
			// One stream at a time; the input stays put until it ends.
			return m, nil
		}

		m.input.Reset()
		m.session.SetDraft("")
		m.status = ""
		m.lastError = nil
		return m, sendCmd(m.session, text)
	}

	return m.updateInput(msg)
}

// handleCommand processes slash commands.
func (m Model) handleCommand(cmd string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(cmd)
	name := strings.ToLower(fields[0])

	switch name {
	case "/help":
		m.status = ""
		m.lastError = nil
		m.input.Reset()
		return m, func() tea.Msg { return statusMsg{text: helpText} }

	case "/new":
		if m.snap.Streaming {
			m.session.CancelStream()
		}
		m.session.Reset()
		m.snap = m.session.Snapshot()
		m.input.Reset()
		m.status = "Started a new conversation"
		return m, nil

	case "/rename":
		title := strings.TrimSpace(strings.TrimPrefix(cmd, fields[0]))
		if title == "" {
			m.lastError = fmt.Errorf("usage: /rename <new title>")
			m.input.Reset()
			return m, nil
		}
		m.session.Rename(title)
		m.input.Reset()
		m.status = fmt.Sprintf("Renamed to %q", title)
		return m, nil

	case "/copy":
		m.input.Reset()
		if reply := lastAssistantMessage(m.snap.Messages); reply != "" {
			return m, copyCmd(reply)
		}
		m.status = "Nothing to copy yet"
		return m, nil

	case "/exit", "/quit":
		return m.quit()

	default:
		m.lastError = fmt.Errorf("unknown command: %s (try /help)", name)
		m.input.Reset()
		return m, nil
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.session.SetDraft(m.input.Value())
	m.unsubscribe()
	// Close pushes out any pending save before the program exits.
	m.session.Close()
	return m, tea.Quit
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.SetDraft(m.input.Value())
	return m, cmd
}

func lastAssistantMessage(messages []store.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}

const helpText = `Commands: /new starts a fresh conversation, /rename <title> renames it, /copy copies the last reply, /exit quits. Ctrl+C stops a streaming response.`
