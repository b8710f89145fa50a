package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Command is a slash command typed into the input field.
type Command string

const (
	CommandNone  Command = ""
	CommandNew   Command = "/new"
	CommandDebug Command = "/debug"
	CommandQuit  Command = "/quit"
)

// SubmittedMsg is sent when the user presses enter on a non-empty line.
type SubmittedMsg struct {
	Text    string
	Command Command
}

// ParseCommand splits a submitted line into a command or a plain message.
// Commands are case-insensitive; unknown slash words are plain messages.
func ParseCommand(line string) (Command, string) {
	text := strings.TrimSpace(line)
	switch Command(strings.ToLower(text)) {
	case CommandNew:
		return CommandNew, ""
	case CommandDebug:
		return CommandDebug, ""
	case CommandQuit:
		return CommandQuit, ""
	}
	return CommandNone, text
}

// InputField is a text input component for founder messages.
type InputField struct {
	input textinput.Model
	width int
}

// NewInputField creates a new InputField.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Describe your startup idea or answer the analyst..."
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 60

	return &InputField{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the input field.
func (f *InputField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 4 // Account for prompt and padding
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		cmd, text := ParseCommand(f.input.Value())
		if cmd == CommandNone && text == "" {
			return f, nil
		}
		f.input.Reset()
		return f, func() tea.Msg {
			return SubmittedMsg{Text: text, Command: cmd}
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	prompt := promptStyle.Render("You: ")
	return boxStyle.Render(prompt + f.input.View())
}

// Focus sets focus on the input field.
func (f *InputField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input field.
func (f *InputField) Blur() {
	f.input.Blur()
}
