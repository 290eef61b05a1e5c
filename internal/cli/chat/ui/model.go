// Package ui implements the Bubbletea front end for the chat session. The
// model renders snapshots published by the session; all conversation state
// lives behind the session, never in the model.
package ui

import (
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/shoal-chat/shoal/internal/chat"
)

// Model is the Bubbletea model for the interactive chat surface.
type Model struct {
	session   *chat.Session
	modelName string

	// snaps is the latest-wins feed from the session subscription. A
	// slow terminal drops intermediate snapshots, never the newest one.
	snaps       chan chat.Snapshot
	unsubscribe func()

	snap chat.Snapshot

	input   textinput.Model
	spinner spinner.Model

	status    string
	lastError error

	renderer *glamour.TermRenderer
	width    int
	height   int

	quitting bool
}

// NewModel creates the chat UI around a session.
func NewModel(session *chat.Session, modelName string) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 80
	ti.SetValue(session.Draft())

	s := spinner.New()
	s.Spinner = spinner.Dot

	rendererOpts := []glamour.TermRendererOption{glamour.WithWordWrap(80)}
	if os.Getenv("NO_COLOR") != "" {
		rendererOpts = append(rendererOpts, glamour.WithStylePath("notty"))
	} else {
		rendererOpts = append(rendererOpts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(rendererOpts...)
	if err != nil {
		return Model{}, err
	}

	snaps := make(chan chat.Snapshot, 8)
	unsubscribe := session.Subscribe(func(snap chat.Snapshot) {
		select {
		case snaps <- snap:
		default:
			// Full buffer: drop the oldest queued snapshot so the newest
			// always lands.
			select {
			case <-snaps:
			default:
			}
			select {
			case snaps <- snap:
			default:
			}
		}
	})

	return Model{
		session:     session,
		modelName:   modelName,
		snaps:       snaps,
		unsubscribe: unsubscribe,
		snap:        session.Snapshot(),
		input:       ti,
		spinner:     s,
		renderer:    renderer,
		width:       80,
		height:      24,
	}, nil
}

// Init starts the input blink, the spinner, and the snapshot loop
// (Bubbletea interface).
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForSnapshot(m.snaps),
	)
}
