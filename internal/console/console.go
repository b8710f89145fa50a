// Package console renders turn notifications to a terminal.
//
// Normal mode prints only the orchestrator's reply after an "Analyst:"
// prefix. Debug mode draws a box per node with every dispatch, the input a
// specialist received, a preview of each result and phase timing.
package console

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/ShayCichocki/validator/internal/stream"
)

const (
	headerWidth  = 50
	footerWidth  = 52
	previewLines = 6
	previewWidth = 120
)

// nodeColors is matched exactly, then by substring in order.
var nodeColors = []struct {
	key  string
	attr color.Attribute
}{
	{"orchestrator", color.FgCyan},
	{"model", color.FgCyan},
	{"market", color.FgGreen},
	{"competition", color.FgMagenta},
	{"customer", color.FgYellow},
	{"business_model", color.FgBlue},
	{"risks", color.FgRed},
	{"gtm", color.FgWhite},
}

// Options configures a Renderer.
type Options struct {
	// Labels maps specialist ids to display names.
	Labels map[string]string
	Debug  bool
	// NoColor disables ANSI escapes regardless of the terminal.
	NoColor bool
	// OrchestratorNode is the node whose text is the reply. Empty means
	// stream.DefaultOrchestratorNode.
	OrchestratorNode string
}

// Renderer writes notifications for one turn. It is not safe for concurrent
// use; create one per turn.
type Renderer struct {
	w            *errWriter
	labels       map[string]string
	debug        bool
	noColor      bool
	orchestrator string

	atLineStart bool
	replied     bool
}

// New returns a renderer writing to w.
func New(w io.Writer, opts Options) *Renderer {
	r := &Renderer{
		w:            &errWriter{w: w},
		labels:       opts.Labels,
		debug:        opts.Debug,
		noColor:      opts.NoColor,
		orchestrator: opts.OrchestratorNode,
		atLineStart:  true,
	}
	if r.orchestrator == "" {
		r.orchestrator = stream.DefaultOrchestratorNode
	}
	return r
}

// Debug reports whether the renderer draws the full trace.
func (r *Renderer) Debug() bool {
	return r.debug
}

// Render writes one notification. It returns the first write error seen, so
// it can be passed directly to stream.Driver.Run.
func (r *Renderer) Render(n stream.Notification) error {
	if r.debug {
		r.renderDebug(n)
	} else {
		r.renderNormal(n)
	}
	return r.w.err
}

func (r *Renderer) renderNormal(n stream.Notification) {
	switch v := n.(type) {
	case stream.Boundary:
		if v.Final {
			if r.replied {
				r.printf("\n")
			}
			return
		}
		if r.replied {
			r.printf("\n  %s", r.paint(fmt.Sprintf("[%s]", v.To), color.Faint))
		}
	case stream.Text:
		if v.Node != r.orchestrator {
			return
		}
		if !r.replied {
			r.printf("\nAnalyst: ")
			r.replied = true
		}
		r.printf("%s", v.Content)
	}
}

func (r *Renderer) renderDebug(n stream.Notification) {
	switch v := n.(type) {
	case stream.Boundary:
		if v.From != "" {
			r.footer(v.From)
			word := "elapsed"
			if v.Final {
				word = "total"
			}
			r.printf("%s\n", r.paint(fmt.Sprintf("  (%.1fs %s)", v.TurnElapsed.Seconds(), word), color.Faint))
		}
		if !v.Final {
			r.header(v.To)
		}
	case stream.Text:
		r.text(v.Node, v.Content)
	case stream.Dispatch:
		r.dispatch(v)
	case stream.Result:
		r.result(v)
	}
}

func (r *Renderer) header(node string) {
	label := r.label(node)
	bar := strings.Repeat("─", max(1, headerWidth-utf8.RuneCountInString(label)))
	r.printf("\n%s\n", r.paint(fmt.Sprintf("┌─ %s %s", label, bar), colorFor(node), color.Bold))
	r.atLineStart = true
}

func (r *Renderer) footer(node string) {
	r.printf("\n%s\n", r.paint("└"+strings.Repeat("─", footerWidth), colorFor(node), color.Bold))
	r.atLineStart = true
}

// text writes streamed text, adding the box gutter at every line start. The
// line state carries across calls since deltas split lines arbitrarily.
func (r *Renderer) text(node, s string) {
	gutter := r.paint("│ ", colorFor(node))
	var b strings.Builder
	for _, ch := range s {
		if r.atLineStart {
			b.WriteString(gutter)
			r.atLineStart = false
		}
		b.WriteRune(ch)
		if ch == '\n' {
			r.atLineStart = true
		}
	}
	r.printf("%s", b.String())
}

func (r *Renderer) dispatch(d stream.Dispatch) {
	bar := r.paint("│", colorFor(d.Node))
	r.printf("\n%s\n", bar)

	if d.Specialist == "" {
		r.printf("%s %s\n", bar, r.paint(">> TOOL: "+d.Tool, color.Bold))
		r.atLineStart = true
		return
	}

	target := r.paint(fmt.Sprintf("%s (%s)", r.label(d.Specialist), d.Specialist), colorFor(d.Specialist), color.Bold)
	r.printf("%s %s%s\n", bar, r.paint(">> DISPATCH: ", color.Bold), target)

	if desc := strings.TrimSpace(d.Description); desc != "" {
		lines := strings.Split(desc, "\n")
		r.printf("%s %s\n", bar, r.paint("   Input:", color.Faint))
		for _, line := range lines[:min(len(lines), previewLines)] {
			r.printf("%s %s\n", bar, r.paint("     "+truncate(line, previewWidth), color.Faint))
		}
		if extra := len(lines) - previewLines; extra > 0 {
			r.printf("%s %s\n", bar, r.paint(fmt.Sprintf("     ...(%d more lines)", extra), color.Faint))
		}
	}
	r.atLineStart = true
}

func (r *Renderer) result(res stream.Result) {
	bar := r.paint("│", colorFor(res.Node))

	var tag string
	if res.Attribution.Unknown() {
		tag = r.paint(fmt.Sprintf("agent #%d", res.Seq), color.Faint)
	} else {
		tag = r.paint(r.label(res.Attribution.Specialist), colorFor(res.Attribution.Specialist), color.Bold)
	}
	r.printf("\n%s\n", bar)
	r.printf("%s %s%s%s\n", bar, r.paint("<< RESULT from ", color.FgGreen, color.Bold), tag, r.paint(":", color.FgGreen, color.Bold))

	var meaningful []string
	for _, line := range strings.Split(strings.TrimSpace(res.Content), "\n") {
		if strings.TrimSpace(line) != "" {
			meaningful = append(meaningful, line)
		}
	}
	for _, line := range meaningful[:min(len(meaningful), previewLines)] {
		out := truncate(line, previewWidth)
		if out != line {
			out += "..."
		}
		r.printf("%s %s\n", bar, r.paint("   "+out, color.Faint))
	}
	if extra := len(meaningful) - previewLines; extra > 0 {
		r.printf("%s %s\n", bar, r.paint(fmt.Sprintf("   ...(%d more lines)", extra), color.Faint))
	}
	r.printf("%s\n", bar)
	r.atLineStart = true
}

func (r *Renderer) label(node string) string {
	if l, ok := r.labels[node]; ok {
		return l
	}
	if node == r.orchestrator {
		return "Orchestrator"
	}
	return node
}

func (r *Renderer) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if r.noColor {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func colorFor(node string) color.Attribute {
	for _, nc := range nodeColors {
		if node == nc.key {
			return nc.attr
		}
	}
	for _, nc := range nodeColors {
		if strings.Contains(node, nc.key) {
			return nc.attr
		}
	}
	return color.Faint
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// errWriter remembers the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
