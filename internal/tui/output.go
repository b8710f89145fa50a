package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// OutputMsg carries rendered turn output into the program.
type OutputMsg struct {
	Text string
}

// Transcript displays a scrollable view of the conversation. Text arrives
// in arbitrary chunks; complete lines go to a ring buffer and the trailing
// partial line is kept until its newline shows up.
type Transcript struct {
	lines   *RingBuffer
	partial strings.Builder
	// scrollOffset is the current scroll position (0 = top).
	scrollOffset int
	width        int
	height       int
	// autoScroll keeps the view pinned to the newest line.
	autoScroll bool
}

// NewTranscript creates a new Transcript instance.
func NewTranscript() *Transcript {
	return &Transcript{
		lines:      NewRingBuffer(DefaultBufferSize),
		width:      80,
		height:     20,
		autoScroll: true,
	}
}

// Update handles scroll keys and output chunks.
func (o *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up":
			o.ScrollUp()
			o.autoScroll = false
		case "down":
			o.ScrollDown()
		case "pgup":
			o.ScrollPageUp()
			o.autoScroll = false
		case "pgdown":
			o.ScrollPageDown()
		case "home":
			o.scrollOffset = 0
			o.autoScroll = false
		case "end":
			o.Follow()
		}

	case OutputMsg:
		o.Write(msg.Text)
	}

	return o, nil
}

// View renders the visible part of the transcript.
func (o *Transcript) View() string {
	wrappedLines := o.wrapLines()

	totalLines := len(wrappedLines)
	if o.scrollOffset > totalLines-o.height {
		o.scrollOffset = max(0, totalLines-o.height)
	}

	start := o.scrollOffset
	end := min(start+o.height, totalLines)

	var sb strings.Builder
	for i := start; i < end; i++ {
		sb.WriteString(wrappedLines[i])
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	// Keep the box a fixed height so the input does not jump.
	for i := end - start; i < o.height; i++ {
		sb.WriteString("\n")
	}

	if info := o.scrollIndicator(totalLines); info != "" {
		sb.WriteString("\n")
		sb.WriteString(info)
	}

	return sb.String()
}

// Write appends a chunk of output. It never fails.
func (o *Transcript) Write(text string) {
	o.partial.WriteString(text)
	buffered := o.partial.String()
	for {
		idx := strings.IndexByte(buffered, '\n')
		if idx == -1 {
			break
		}
		o.lines.Append(buffered[:idx])
		buffered = buffered[idx+1:]
	}
	o.partial.Reset()
	o.partial.WriteString(buffered)

	if o.autoScroll {
		o.scrollToBottom()
	}
}

// AppendLine adds a complete line, ending any partial line first.
func (o *Transcript) AppendLine(line string) {
	o.Flush()
	o.Write(line + "\n")
}

// Flush moves a pending partial line into the buffer.
func (o *Transcript) Flush() {
	if o.partial.Len() > 0 {
		o.lines.Append(o.partial.String())
		o.partial.Reset()
	}
}

// Lines returns all lines, including an unfinished last one.
func (o *Transcript) Lines() []string {
	lines := o.lines.Lines()
	if o.partial.Len() > 0 {
		lines = append(lines, o.partial.String())
	}
	return lines
}

// ScrollUp moves the viewport up by one line.
func (o *Transcript) ScrollUp() {
	if o.scrollOffset > 0 {
		o.scrollOffset--
	}
}

// ScrollDown moves the viewport down by one line.
func (o *Transcript) ScrollDown() {
	maxOffset := max(0, len(o.wrapLines())-o.height)
	if o.scrollOffset < maxOffset {
		o.scrollOffset++
	}
}

// ScrollPageUp moves the viewport up by one page.
func (o *Transcript) ScrollPageUp() {
	o.scrollOffset = max(0, o.scrollOffset-o.height)
}

// ScrollPageDown moves the viewport down by one page.
func (o *Transcript) ScrollPageDown() {
	maxOffset := max(0, len(o.wrapLines())-o.height)
	o.scrollOffset = min(o.scrollOffset+o.height, maxOffset)
}

// SetSize updates the viewport dimensions.
func (o *Transcript) SetSize(width, height int) {
	o.width = width
	o.height = max(1, height)
	if o.autoScroll {
		o.scrollToBottom()
	}
}

// Follow jumps to the newest output and resumes auto-scroll.
func (o *Transcript) Follow() {
	o.scrollToBottom()
	o.autoScroll = true
}

func (o *Transcript) scrollToBottom() {
	o.scrollOffset = max(0, len(o.wrapLines())-o.height)
}

// wrapLines wraps all lines to the viewport width. Lines carry color
// escapes from the renderer, so widths are measured on printable cells.
func (o *Transcript) wrapLines() []string {
	lines := o.Lines()
	if o.width <= 0 {
		return lines
	}

	var wrapped []string
	for _, line := range lines {
		if ansi.StringWidth(line) <= o.width {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, strings.Split(ansi.Wrap(line, o.width, " "), "\n")...)
	}
	return wrapped
}

func (o *Transcript) scrollIndicator(totalLines int) string {
	if totalLines <= o.height {
		return ""
	}

	percent := 0
	if maxOffset := totalLines - o.height; maxOffset > 0 {
		percent = (o.scrollOffset * 100) / maxOffset
	}

	follow := " [FOLLOW]"
	if !o.autoScroll {
		follow = " [PAUSED - press End to follow]"
	}
	return strings.Repeat(" ", max(0, o.width/2-15)) + fmt.Sprintf("--- %3d%% ---", percent) + follow
}

// Clear removes all output.
func (o *Transcript) Clear() {
	o.lines.Clear()
	o.partial.Reset()
	o.scrollOffset = 0
	o.autoScroll = true
}

// IsAutoScroll returns whether auto-scroll is enabled.
func (o *Transcript) IsAutoScroll() bool {
	return o.autoScroll
}

// DefaultBufferSize is the number of transcript lines kept.
const DefaultBufferSize = 10000

// RingBuffer provides fixed-size line storage with O(1) appends.
// When the buffer is full, the oldest lines are discarded.
type RingBuffer struct {
	data  []string
	size  int
	head  int // next write
	tail  int // oldest
	count int
}

// NewRingBuffer creates a new RingBuffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &RingBuffer{
		data: make([]string, capacity),
		size: capacity,
	}
}

// Append adds a line, overwriting the oldest when full.
func (rb *RingBuffer) Append(line string) {
	rb.data[rb.head] = line
	rb.head = (rb.head + 1) % rb.size

	if rb.count < rb.size {
		rb.count++
	} else {
		rb.tail = (rb.tail + 1) % rb.size
	}
}

// Lines returns all lines from oldest to newest.
func (rb *RingBuffer) Lines() []string {
	if rb.count == 0 {
		return nil
	}

	result := make([]string, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.data[(rb.tail+i)%rb.size]
	}
	return result
}

// Clear removes all lines from the buffer.
func (rb *RingBuffer) Clear() {
	rb.head = 0
	rb.tail = 0
	rb.count = 0
}

// msgWriter is an io.Writer that forwards every write to a running program.
// Writes may come from the turn goroutine.
type msgWriter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (w *msgWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.send(OutputMsg{Text: string(p)})
	return len(p), nil
}
