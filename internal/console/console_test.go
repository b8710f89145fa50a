package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/validator/internal/stream"
)

var testLabels = map[string]string{"market": "Market Sizing", "risks": "Risk Analysis"}

func render(t *testing.T, debug bool, notes ...stream.Notification) string {
	t.Helper()
	var buf bytes.Buffer
	r := New(&buf, Options{Labels: testLabels, Debug: debug, NoColor: true})
	for _, n := range notes {
		if err := r.Render(n); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
	}
	return buf.String()
}

func TestRenderer_NormalMode(t *testing.T) {
	got := render(t, false,
		stream.Boundary{To: "model"},
		stream.Text{Node: "model", Content: "Hello "},
		stream.Dispatch{Node: "model", InvocationID: "t1", Tool: "task", Specialist: "market"},
		stream.Text{Node: "market", Content: "ignored"},
		stream.Boundary{From: "model", To: "tools"},
		stream.Result{Node: "tools", Content: "result text", Seq: 1},
		stream.Text{Node: "model", Content: "world"},
		stream.Boundary{From: "tools", Final: true},
	)

	want := "\nAnalyst: Hello \n  [tools]world\n"
	if got != want {
		t.Errorf("normal output = %q, want %q", got, want)
	}
}

func TestRenderer_NormalModeSilentTurn(t *testing.T) {
	got := render(t, false, stream.Boundary{To: "model"}, stream.Boundary{From: "model", Final: true})
	if got != "" {
		t.Errorf("output = %q, want empty", got)
	}
}

func TestRenderer_DebugSections(t *testing.T) {
	got := render(t, true,
		stream.Boundary{To: "model"},
		stream.Text{Node: "model", Content: "Hello\nwor"},
		stream.Text{Node: "model", Content: "ld"},
		stream.Boundary{From: "model", To: "tools", TurnElapsed: 1500 * time.Millisecond},
		stream.Boundary{From: "tools", Final: true, TurnElapsed: 3 * time.Second},
	)

	header := "┌─ Orchestrator " + strings.Repeat("─", headerWidth-len("Orchestrator"))
	checks := []string{
		header,
		"│ Hello\n│ world",
		"└" + strings.Repeat("─", footerWidth),
		"  (1.5s elapsed)",
		"┌─ tools ",
		"  (3.0s total)",
	}
	for _, c := range checks {
		if !strings.Contains(got, c) {
			t.Errorf("debug output missing %q:\n%s", c, got)
		}
	}
	if strings.Count(got, "┌─") != 2 || strings.Count(got, "└") != 2 {
		t.Errorf("want two boxes, got:\n%s", got)
	}
}

func TestRenderer_DebugDispatch(t *testing.T) {
	desc := strings.Join([]string{"one", strings.Repeat("x", 130), "3", "4", "5", "6", "7", "8"}, "\n")
	got := render(t, true, stream.Dispatch{
		Node: "model", InvocationID: "t1", Tool: "task", Specialist: "market", Description: desc,
	})

	if !strings.Contains(got, "│ >> DISPATCH: Market Sizing (market)") {
		t.Errorf("missing dispatch line:\n%s", got)
	}
	if !strings.Contains(got, "│      "+strings.Repeat("x", previewWidth)+"\n") {
		t.Errorf("long input line not truncated to %d:\n%s", previewWidth, got)
	}
	if strings.Contains(got, "     7") {
		t.Errorf("printed more than %d input lines:\n%s", previewLines, got)
	}
	if !strings.Contains(got, "...(2 more lines)") {
		t.Errorf("missing remainder count:\n%s", got)
	}
}

func TestRenderer_DebugToolDispatch(t *testing.T) {
	got := render(t, true, stream.Dispatch{Node: "model", InvocationID: "t2", Tool: "web_search"})
	if !strings.Contains(got, ">> TOOL: web_search") {
		t.Errorf("output = %q", got)
	}
}

func TestRenderer_DebugResult(t *testing.T) {
	tests := []struct {
		name string
		res  stream.Result
		want []string
		not  []string
	}{
		{
			name: "attributed",
			res: stream.Result{
				Node: "tools", Seq: 1, Content: "TAM is $4B\n\nSAM is $1B",
				Attribution: stream.Attribution{Specialist: "market", Method: stream.MethodInvocation},
			},
			want: []string{"<< RESULT from Market Sizing:", "│    TAM is $4B\n│    SAM is $1B\n"},
		},
		{
			name: "unknown",
			res:  stream.Result{Node: "tools", Seq: 3, Content: "???", Attribution: stream.Attribution{Method: stream.MethodUnknown}},
			want: []string{"<< RESULT from agent #3:"},
		},
		{
			name: "long",
			res: stream.Result{
				Node: "tools", Seq: 1, Content: strings.Repeat("y", 200) + "\n2\n3\n4\n5\n6\n7",
				Attribution: stream.Attribution{Specialist: "risks", Method: stream.MethodKeyword},
			},
			want: []string{strings.Repeat("y", previewWidth) + "...\n", "...(1 more lines)"},
			not:  []string{"   7\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, true, tt.res)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("output contains %q:\n%s", n, got)
				}
			}
		})
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRenderer_WriteError(t *testing.T) {
	r := New(failWriter{}, Options{Debug: true, NoColor: true})
	if err := r.Render(stream.Boundary{To: "model"}); err == nil {
		t.Error("expected write error")
	}
}

func TestColorFor(t *testing.T) {
	tests := []struct {
		node string
		want color.Attribute
	}{
		{"model", color.FgCyan},
		{"market", color.FgGreen},
		{"business_model", color.FgBlue},
		{"specialist.market", color.FgGreen},
		{"risks", color.FgRed},
		{"tools", color.Faint},
	}
	for _, tt := range tests {
		if got := colorFor(tt.node); got != tt.want {
			t.Errorf("colorFor(%q) = %v, want %v", tt.node, got, tt.want)
		}
	}
}

func TestPrintHelpers(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	PrintBanner(&buf, Banner{Title: "Venture Validator", Debug: true})
	PrintToggle(&buf, false)
	PrintSession(&buf, "abc123")
	PrintUser(&buf, "hi")

	out := buf.String()
	for _, want := range []string{"Venture Validator", "DEBUG MODE", "Langfuse: OFF", "Debug mode: OFF", "+ New session: abc123", "You: hi"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
