package ui

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shoal-chat/shoal/internal/chat"
)

// waitForSnapshot blocks on the session's snapshot feed and delivers the
// next state change. Update re-issues it after every snapshotMsg, so the
// loop runs for the lifetime of the program.
func waitForSnapshot(ch <-chan chat.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: <-ch}
	}
}

// sendCmd runs the blocking send off the update loop. Incremental state
// arrives through the snapshot feed; this command only reports the final
// outcome.
func sendCmd(session *chat.Session, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{result: session.Send(context.Background(), text)}
	}
}

// copyCmd writes text to the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return errorMsg{err: err}
		}
		return statusMsg{text: "Copied last reply to clipboard"}
	}
}
