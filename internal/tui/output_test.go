package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTranscript_WriteChunks(t *testing.T) {
	tr := NewTranscript()

	tr.Write("\nAnalyst: Hel")
	tr.Write("lo there\nsecond")

	got := tr.Lines()
	want := []string{"", "Analyst: Hello there", "second"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	tr.AppendLine("third")
	got = tr.Lines()
	if len(got) != 4 || got[2] != "second" || got[3] != "third" {
		t.Errorf("after AppendLine, Lines() = %q", got)
	}
}

func TestTranscript_Wrap(t *testing.T) {
	tr := NewTranscript()
	tr.SetSize(10, 5)
	tr.AppendLine("aaaa bbbb cccc")
	tr.AppendLine("\x1b[32mshort\x1b[0m")

	wrapped := tr.wrapLines()
	if len(wrapped) != 3 {
		t.Fatalf("wrapLines() = %q, want 3 lines", wrapped)
	}
	if wrapped[2] != "\x1b[32mshort\x1b[0m" {
		t.Errorf("colored line = %q, should pass through unwrapped", wrapped[2])
	}
}

func TestTranscript_Scroll(t *testing.T) {
	tr := NewTranscript()
	tr.SetSize(40, 3)
	for i := 0; i < 10; i++ {
		tr.AppendLine(strings.Repeat("x", i+1))
	}

	if tr.scrollOffset != 7 {
		t.Fatalf("scrollOffset = %d, want 7 (pinned to bottom)", tr.scrollOffset)
	}

	tr.Update(tea.KeyMsg{Type: tea.KeyUp})
	if tr.scrollOffset != 6 || tr.IsAutoScroll() {
		t.Errorf("after up: offset=%d autoScroll=%v", tr.scrollOffset, tr.IsAutoScroll())
	}

	tr.AppendLine("new")
	if tr.scrollOffset != 6 {
		t.Errorf("paused view moved to %d on new output", tr.scrollOffset)
	}
	if !strings.Contains(tr.View(), "PAUSED") {
		t.Error("View should show the paused indicator")
	}

	tr.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if tr.scrollOffset != 8 || !tr.IsAutoScroll() {
		t.Errorf("after end: offset=%d autoScroll=%v", tr.scrollOffset, tr.IsAutoScroll())
	}

	tr.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	if tr.scrollOffset != 5 {
		t.Errorf("after pgup: offset=%d, want 5", tr.scrollOffset)
	}
	tr.Update(tea.KeyMsg{Type: tea.KeyHome})
	if tr.scrollOffset != 0 {
		t.Errorf("after home: offset=%d, want 0", tr.scrollOffset)
	}
}

func TestTranscript_Clear(t *testing.T) {
	tr := NewTranscript()
	tr.Write("pending")
	tr.AppendLine("done")
	tr.Clear()

	if len(tr.Lines()) != 0 || !tr.IsAutoScroll() {
		t.Errorf("after Clear: lines=%q autoScroll=%v", tr.Lines(), tr.IsAutoScroll())
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, s := range []string{"a", "b", "c", "d"} {
		rb.Append(s)
	}

	if got := strings.Join(rb.Lines(), ""); got != "bcd" {
		t.Errorf("Lines() = %q, want %q", got, "bcd")
	}

	rb.Clear()
	if rb.Lines() != nil {
		t.Errorf("Lines() after Clear = %q, want nil", rb.Lines())
	}
}

func TestMsgWriter(t *testing.T) {
	var got []tea.Msg
	w := &msgWriter{send: func(m tea.Msg) { got = append(got, m) }}

	if n, err := w.Write([]byte("chunk")); n != 5 || err != nil {
		t.Errorf("Write = %d, %v", n, err)
	}
	w.Write(nil)

	if len(got) != 1 || got[0].(OutputMsg).Text != "chunk" {
		t.Errorf("sent = %#v", got)
	}
}
