package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/validator/internal/console"
)

// SessionStartedMsg reports the outcome of starting a session.
type SessionStartedMsg struct {
	ID  string
	Err error
}

// TurnDoneMsg is sent when a turn finishes, successfully or not.
type TurnDoneMsg struct {
	Err error
}

// ChatOptions configures the chat.
type ChatOptions struct {
	Debug bool
	// TracingHost is shown in the header when tracing is on.
	TracingHost string
}

// ChatApp is the main model for the interactive chat.
type ChatApp struct {
	backend    Backend
	header     *Header
	transcript *Transcript
	input      *InputField
	spinner    spinner.Model

	width    int
	height   int
	debug    bool
	busy     bool
	quitting bool

	// cancel stops the running turn.
	cancel context.CancelFunc
	// sink delivers messages from the turn goroutine; program.Send in practice.
	sink func(tea.Msg)
}

// NewChatApp creates a new ChatApp.
func NewChatApp(backend Backend, opts ChatOptions) *ChatApp {
	header := NewHeader()
	header.SetDebug(opts.Debug)
	header.SetTracing(opts.TracingHost != "")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	return &ChatApp{
		backend:    backend,
		header:     header,
		transcript: NewTranscript(),
		input:      NewInputField(),
		spinner:    sp,
		debug:      opts.Debug,
		sink:       func(tea.Msg) {},
	}
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.startSession())
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if a.busy && a.cancel != nil {
				a.cancel()
				return a, nil
			}
			a.quitting = true
			return a, tea.Quit
		case "up", "down", "pgup", "pgdown", "home", "end":
			a.transcript.Update(msg)
			return a, nil
		}
		_, cmd := a.input.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()

	case SubmittedMsg:
		return a, a.submit(msg)

	case SessionStartedMsg:
		if msg.Err != nil {
			a.transcript.AppendLine("Error: " + msg.Err.Error())
			break
		}
		a.header.SetSession(msg.ID)
		a.print(func(b *strings.Builder) { console.PrintSession(b, msg.ID) })

	case OutputMsg:
		a.transcript.Update(msg)

	case TurnDoneMsg:
		a.busy = false
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
		a.transcript.Flush()
		switch {
		case msg.Err == nil:
		case errors.Is(msg.Err, context.Canceled):
			a.transcript.AppendLine("(turn cancelled)")
		default:
			a.transcript.AppendLine("Error: " + msg.Err.Error())
		}

	case spinner.TickMsg:
		if a.busy {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

func (a *ChatApp) submit(msg SubmittedMsg) tea.Cmd {
	switch msg.Command {
	case CommandQuit:
		if a.cancel != nil {
			a.cancel()
		}
		a.quitting = true
		return tea.Quit
	case CommandDebug:
		a.debug = !a.debug
		a.header.SetDebug(a.debug)
		a.print(func(b *strings.Builder) { console.PrintToggle(b, a.debug) })
		return nil
	case CommandNew:
		if a.busy {
			a.transcript.AppendLine("(wait for the current reply before starting a new session)")
			return nil
		}
		a.transcript.Clear()
		return a.startSession()
	}

	if a.busy {
		a.transcript.AppendLine("(still working on the last message)")
		return nil
	}
	a.transcript.Follow()
	a.print(func(b *strings.Builder) {
		console.PrintSeparator(b)
		console.PrintUser(b, msg.Text)
	})
	return a.startTurn(msg.Text)
}

func (a *ChatApp) startSession() tea.Cmd {
	backend := a.backend
	return func() tea.Msg {
		id, err := backend.NewSession(context.Background())
		return SessionStartedMsg{ID: id, Err: err}
	}
}

func (a *ChatApp) startTurn(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.busy = true

	backend, debug := a.backend, a.debug
	out := &msgWriter{send: a.sink}
	turn := func() tea.Msg {
		return TurnDoneMsg{Err: backend.Send(ctx, text, debug, out)}
	}
	return tea.Batch(turn, a.spinner.Tick)
}

// print renders console output into the transcript.
func (a *ChatApp) print(fn func(b *strings.Builder)) {
	var b strings.Builder
	fn(&b)
	a.transcript.Flush()
	a.transcript.Write(b.String())
}

func (a *ChatApp) updateSizes() {
	const inputHeight = 3
	const statusHeight = 1
	const indicatorHeight = 1
	a.header.SetWidth(a.width)
	a.input.SetWidth(a.width)
	a.transcript.SetSize(a.width, a.height-a.header.Height()-inputHeight-statusHeight-indicatorHeight)
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	hint := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	status := hint.Render("enter send · /new · /debug · /quit · pgup/pgdown scroll · ctrl+c quit")
	switch {
	case a.busy && !a.transcript.IsAutoScroll():
		status = a.spinner.View() + " " + hint.Render("analyst is working · new output below, end to follow")
	case a.busy:
		status = a.spinner.View() + " " + hint.Render("analyst is working · ctrl+c to cancel")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(),
		a.transcript.View(),
		status,
		a.input.View(),
	)
}

// Debug reports whether the full trace is shown.
func (a *ChatApp) Debug() bool {
	return a.debug
}

// NewChatProgram creates the Bubbletea program for the chat. Turn output
// reaches the program through program.Send.
func NewChatProgram(backend Backend, opts ChatOptions) (*tea.Program, *ChatApp) {
	app := NewChatApp(backend, opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	app.sink = p.Send
	return p, app
}
