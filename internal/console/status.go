package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Banner describes the startup banner.
type Banner struct {
	Title       string
	Subtitle    string
	Debug       bool
	TracingHost string // empty when tracing is off
}

// PrintBanner writes the startup banner.
func PrintBanner(w io.Writer, b Banner) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", b.Title)
	if b.Debug {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgYellow, color.Bold).Sprint("DEBUG MODE"),
			"- showing agent dispatches, I/O, timing")
	}
	if b.Subtitle != "" {
		fmt.Fprintf(w, "  %s\n", b.Subtitle)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if b.TracingHost != "" {
		fmt.Fprintf(w, "  Langfuse: %s -> %s\n", color.GreenString("ON"), b.TracingHost)
	} else {
		fmt.Fprintf(w, "  Langfuse: %s\n", color.New(color.Faint).Sprint("OFF"))
	}
	fmt.Fprintln(w)
}

// PrintSeparator writes the rule drawn between turns.
func PrintSeparator(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("─", 70))
}

// PrintUser echoes a founder message.
func PrintUser(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint("You:"), msg)
}

// PrintSession announces a new session.
func PrintSession(w io.Writer, id string) {
	fmt.Fprintln(w, color.GreenString("+ New session: %s", id))
}

// PrintToggle reports a debug mode change.
func PrintToggle(w io.Writer, debug bool) {
	state := color.New(color.Faint).Sprint("OFF")
	if debug {
		state = color.New(color.FgYellow, color.Bold).Sprint("ON")
	}
	fmt.Fprintf(w, "  Debug mode: %s\n", state)
}
