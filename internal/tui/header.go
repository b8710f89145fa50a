package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the title bar with the session and mode indicators.
type Header struct {
	width     int
	sessionID string
	debug     bool
	tracing   bool
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width: 80,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetSession sets the session shown in the header.
func (h *Header) SetSession(id string) {
	h.sessionID = id
}

// SetDebug sets the debug indicator.
func (h *Header) SetDebug(on bool) {
	h.debug = on
}

// SetTracing sets the tracing indicator.
func (h *Header) SetTracing(on bool) {
	h.tracing = on
}

// View renders the header.
func (h *Header) View() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ECDC4")).
		Bold(true).
		Render("Venture Validator")

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	parts := []string{title, dim.Render("Multi-Agent Startup Analyzer")}

	if h.sessionID != "" {
		parts = append(parts, dim.Render("session "+h.sessionID))
	}
	if h.debug {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")).Bold(true).Render("DEBUG"))
	}
	if h.tracing {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")).Render("langfuse"))
	}

	bar := lipgloss.NewStyle().
		Width(h.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("240"))

	return bar.Render(strings.Join(parts, dim.Render("  |  ")))
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 2 // title + border
}
