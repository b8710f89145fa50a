package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecode_AIChunkOrder(t *testing.T) {
	raw := RawEvent{
		Type:           "AIMessageChunk",
		Node:           "model",
		Content:        "Dispatching",
		ToolCalls:      []RawToolCall{{ID: "tc1", Name: "task"}},
		ToolCallChunks: []RawArgChunk{{ID: "tc1", Args: `{"sub`}},
	}

	got := Decode(raw)
	if len(got) != 3 {
		t.Fatalf("Decode() len = %d, want 3", len(got))
	}
	wantKinds := []Kind{KindText, KindToolCallStart, KindToolCallFragment}
	for i, k := range wantKinds {
		if got[i].Kind() != k {
			t.Errorf("event %d kind = %v, want %v", i, got[i].Kind(), k)
		}
		if got[i].NodeLabel() != "model" {
			t.Errorf("event %d node = %q, want %q", i, got[i].NodeLabel(), "model")
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  RawEvent
		want int
		kind Kind
	}{
		{"empty ai chunk", RawEvent{Type: "ai"}, 0, KindUnknown},
		{"tool message", RawEvent{Type: "ToolMessage", ToolCallID: "tc1", Name: "task", Content: "x"}, 1, KindToolResult},
		{"tool start flat", RawEvent{Type: "tool_start", ID: "tc1", Name: "task"}, 1, KindToolCallStart},
		{"tool start empty", RawEvent{Type: "tool_start"}, 0, KindUnknown},
		{"tool delta flat", RawEvent{Type: "tool_delta", Args: "{"}, 1, KindToolCallFragment},
		{"node", RawEvent{Type: "node", Node: "tools"}, 1, KindNodeBoundary},
		{"unknown type", RawEvent{Type: "human", Content: "hi"}, 0, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.raw)
			if len(got) != tt.want {
				t.Fatalf("Decode() len = %d, want %d", len(got), tt.want)
			}
			if tt.want > 0 && got[0].Kind() != tt.kind {
				t.Errorf("Decode()[0].Kind() = %v, want %v", got[0].Kind(), tt.kind)
			}
		})
	}
}

func TestDecode_ResultFallsBackToID(t *testing.T) {
	got := Decode(RawEvent{Type: "tool_result", ID: "abc", Content: "ok"})
	r, ok := got[0].(ToolResult)
	if !ok {
		t.Fatalf("Decode() = %T, want ToolResult", got[0])
	}
	if r.InvocationID != "abc" {
		t.Errorf("InvocationID = %q, want %q", r.InvocationID, "abc")
	}
}

func TestRecorderReplay(t *testing.T) {
	events := []Event{
		TextDelta{Node: "model", Text: "Looking into it"},
		ToolCallStart{Node: "model", Calls: []ToolCall{{ID: "tc1", Name: "task"}}},
		ToolCallFragment{Node: "model", Chunks: []ArgChunk{{ID: "tc1", Args: `{"subagent_type":"risks"}`}}},
		ToolResult{Node: "tools", InvocationID: "tc1", Tool: "task", Content: "Risk register"},
	}

	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for _, e := range events {
		if err := rec.Record(e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := rec.Record(foreignEvent{}); err != nil {
		t.Fatalf("Record(foreign) error = %v", err)
	}
	buf.WriteString("not json\n\n")

	var got []Event
	replayed, readErr := ReadNDJSON(context.Background(), &buf)
	for e := range replayed {
		got = append(got, e)
	}
	if err := readErr(); err != nil {
		t.Fatalf("ReadNDJSON error = %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("replayed %d events, want %d", len(got), len(events))
	}
	for i := range events {
		if got[i].Kind() != events[i].Kind() {
			t.Errorf("event %d kind = %v, want %v", i, got[i].Kind(), events[i].Kind())
		}
	}
	if r := got[3].(ToolResult); r.InvocationID != "tc1" || r.Content != "Risk register" {
		t.Errorf("result = %+v, want tc1/Risk register", r)
	}
}

func TestReadNDJSON_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	input := strings.Repeat(`{"type":"ai","node":"model","content":"x"}`+"\n", 10)

	ch, _ := ReadNDJSON(ctx, strings.NewReader(input))
	<-ch
	cancel()

	// Channel must close once the reader notices the cancellation.
	for range ch {
	}
}

func TestReadNDJSON_LongLines(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for _, e := range []Event{
		ToolResult{Node: "tools", InvocationID: "tc1", Tool: "task", Content: long},
		ToolResult{Node: "tools", InvocationID: "tc2", Tool: "task", Content: "short"},
	} {
		if err := rec.Record(e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	d := NewDriver(Options{})
	events, readErr := ReadNDJSON(context.Background(), &buf)
	summary, err := d.Run(context.Background(), events, func(Notification) error { return nil })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := readErr(); err != nil {
		t.Fatalf("ReadNDJSON error = %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(summary.Results))
	}
	if got := len(summary.Results[0].Content); got != len(long) {
		t.Errorf("first result length = %d, want %d", got, len(long))
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadNDJSON_ReadError(t *testing.T) {
	in := io.MultiReader(
		strings.NewReader(`{"type":"node","node":"model"}`+"\n"),
		failingReader{err: errors.New("disk gone")},
	)

	events, readErr := ReadNDJSON(context.Background(), in)
	var n int
	for range events {
		n++
	}
	if n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
	if err := readErr(); err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Errorf("ReadNDJSON error = %v, want disk gone", err)
	}
}

func TestRecorder_KeepsErrorFlag(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRecorder(&buf).Record(ToolResult{Node: "tools", InvocationID: "tc1", Tool: "task", Content: "failed", IsError: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	events, _ := ReadNDJSON(context.Background(), &buf)
	var got []Event
	for e := range events {
		got = append(got, e)
	}
	if len(got) != 1 || !got[0].(ToolResult).IsError {
		t.Errorf("replayed = %+v, want one failed result", got)
	}
}
