package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shoal-chat/shoal/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	savingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View renders the UI (Bubbletea interface).
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)))
	b.WriteString("\n\n")

	b.WriteString(m.renderConversation())

	if m.snap.Streaming {
		if m.snap.Partial != "" {
			b.WriteString(m.renderMarkdown(m.snap.Partial))
		} else {
			b.WriteString(fmt.Sprintf("\n%s Thinking...\n", m.spinner.View()))
		}
	}

	if m.lastError != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("\n✗ %v\n", m.lastError)))
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(fmt.Sprintf("\n%s\n", m.status)))
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())

	if !m.snap.Streaming {
		b.WriteString(hintStyle.Render("\n[Enter to send, /help for commands, Ctrl+C to quit]"))
	} else {
		b.WriteString(hintStyle.Render("\n[Ctrl+C to stop the response]"))
	}

	return b.String()
}

// renderHeader renders the title line with model and save state.
func (m Model) renderHeader() string {
	title := m.snap.Title
	if title == "" {
		title = "New Conversation"
	}

	parts := []string{titleStyle.Render(title), hintStyle.Render(m.modelName)}
	if m.snap.Saving {
		parts = append(parts, savingStyle.Render(fmt.Sprintf("%s saving", m.spinner.View())))
	} else if m.snap.ConversationID != "" {
		parts = append(parts, hintStyle.Render("saved"))
	}
	return strings.Join(parts, "  ")
}

// renderConversation renders the transcript, newest messages last.
func (m Model) renderConversation() string {
	var b strings.Builder

	// Cap what is rendered so long conversations stay responsive.
	maxMessages := 20
	startIdx := len(m.snap.Messages) - maxMessages
	if startIdx < 0 {
		startIdx = 0
	}

	for _, msg := range m.snap.Messages[startIdx:] {
		switch msg.Role {
		case store.RoleUser:
			b.WriteString(promptStyle.Render("> "))
			b.WriteString(msg.Content)
			b.WriteString("\n\n")

		case store.RoleAssistant:
			b.WriteString(m.renderMarkdown(msg.Content))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderMarkdown(content string) string {
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

