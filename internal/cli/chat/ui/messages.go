package ui

import "github.com/shoal-chat/shoal/internal/chat"

// snapshotMsg carries a session state change into the update loop.
type snapshotMsg struct {
	snap chat.Snapshot
}

// sendDoneMsg indicates the blocking send call returned.
type sendDoneMsg struct {
	result chat.StreamResult
}

// statusMsg is a transient status line (clipboard feedback, command
// output).
type statusMsg struct {
	text string
}

// errorMsg represents an error during processing.
type errorMsg struct {
	err error
}
