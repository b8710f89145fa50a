package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// RawEvent is the loosely typed, one-line JSON form of a provider event as
// written by Recorder and read by ReadNDJSON. Which fields are populated
// depends on Type.
type RawEvent struct {
	Type           string        `json:"type"`
	Node           string        `json:"node,omitempty"`
	Content        string        `json:"content,omitempty"`
	ID             string        `json:"id,omitempty"`
	Name           string        `json:"name,omitempty"`
	Args           string        `json:"args,omitempty"`
	ToolCallID     string        `json:"tool_call_id,omitempty"`
	ToolCalls      []RawToolCall `json:"tool_calls,omitempty"`
	ToolCallChunks []RawArgChunk `json:"tool_call_chunks,omitempty"`
	IsError        bool          `json:"is_error,omitempty"`
}

// RawToolCall is a tool call announced inside a raw event.
type RawToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawArgChunk is an argument fragment inside a raw event.
type RawArgChunk struct {
	ID   string `json:"id,omitempty"`
	Args string `json:"args"`
}

// Decode converts a raw event into typed events. A single assistant chunk can
// carry text, call starts and argument chunks together; they are returned in
// that order. Unrecognized types decode to nothing.
func Decode(raw RawEvent) []Event {
	switch ClassifyKind(raw.Type) {
	case KindText:
		var out []Event
		if raw.Content != "" {
			out = append(out, TextDelta{Node: raw.Node, Text: raw.Content})
		}
		if len(raw.ToolCalls) > 0 {
			calls := make([]ToolCall, 0, len(raw.ToolCalls))
			for _, c := range raw.ToolCalls {
				calls = append(calls, ToolCall{ID: c.ID, Name: c.Name})
			}
			out = append(out, ToolCallStart{Node: raw.Node, Calls: calls})
		}
		if len(raw.ToolCallChunks) > 0 {
			out = append(out, ToolCallFragment{Node: raw.Node, Chunks: rawChunks(raw.ToolCallChunks)})
		}
		return out

	case KindToolCallStart:
		calls := make([]ToolCall, 0, len(raw.ToolCalls)+1)
		if raw.ID != "" {
			calls = append(calls, ToolCall{ID: raw.ID, Name: raw.Name})
		}
		for _, c := range raw.ToolCalls {
			calls = append(calls, ToolCall{ID: c.ID, Name: c.Name})
		}
		if len(calls) == 0 {
			return nil
		}
		return []Event{ToolCallStart{Node: raw.Node, Calls: calls}}

	case KindToolCallFragment:
		chunks := rawChunks(raw.ToolCallChunks)
		if raw.Args != "" || raw.ID != "" {
			chunks = append([]ArgChunk{{ID: raw.ID, Args: raw.Args}}, chunks...)
		}
		if len(chunks) == 0 {
			return nil
		}
		return []Event{ToolCallFragment{Node: raw.Node, Chunks: chunks}}

	case KindToolResult:
		id := raw.ToolCallID
		if id == "" {
			id = raw.ID
		}
		return []Event{ToolResult{Node: raw.Node, InvocationID: id, Tool: raw.Name, Content: raw.Content, IsError: raw.IsError}}

	case KindNodeBoundary:
		return []Event{NodeMarker{Node: raw.Node}}
	}
	return nil
}

func rawChunks(in []RawArgChunk) []ArgChunk {
	out := make([]ArgChunk, 0, len(in))
	for _, c := range in {
		out = append(out, ArgChunk{ID: c.ID, Args: c.Args})
	}
	return out
}

// Encode converts a typed event back to its raw form.
func Encode(e Event) (RawEvent, bool) {
	switch v := e.(type) {
	case TextDelta:
		return RawEvent{Type: "ai", Node: v.Node, Content: v.Text}, true
	case ToolCallStart:
		raw := RawEvent{Type: "ai", Node: v.Node}
		for _, c := range v.Calls {
			raw.ToolCalls = append(raw.ToolCalls, RawToolCall{ID: c.ID, Name: c.Name})
		}
		return raw, true
	case ToolCallFragment:
		raw := RawEvent{Type: "ai", Node: v.Node}
		for _, c := range v.Chunks {
			raw.ToolCallChunks = append(raw.ToolCallChunks, RawArgChunk{ID: c.ID, Args: c.Args})
		}
		return raw, true
	case ToolResult:
		return RawEvent{Type: "tool", Node: v.Node, ToolCallID: v.InvocationID, Name: v.Tool, Content: v.Content, IsError: v.IsError}, true
	case NodeMarker:
		return RawEvent{Type: "node", Node: v.Node}, true
	}
	return RawEvent{}, false
}

// ReadNDJSON decodes newline-delimited raw events from r and sends the typed
// events on the returned channel, which is closed at EOF, on a read error or
// when ctx is done. Malformed lines are skipped. Lines have no length limit.
// The returned func reports the read error, if any, once the channel is
// closed.
func ReadNDJSON(ctx context.Context, r io.Reader) (<-chan Event, func() error) {
	events := make(chan Event)
	var readErr error

	go func() {
		defer close(events)

		br := bufio.NewReaderSize(r, 64*1024)
		for {
			b, err := br.ReadBytes('\n')
			if line := bytes.TrimSpace(b); len(line) > 0 {
				var raw RawEvent
				if jerr := json.Unmarshal(line, &raw); jerr == nil {
					for _, e := range Decode(raw) {
						select {
						case events <- e:
						case <-ctx.Done():
							return
						}
					}
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				readErr = fmt.Errorf("read recording: %w", err)
				return
			}
		}
	}()

	return events, func() error { return readErr }
}

// Recorder writes events as NDJSON so a turn can be replayed later.
type Recorder struct {
	enc *json.Encoder
}

// NewRecorder returns a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Record writes one event. Events with no raw form are skipped.
func (r *Recorder) Record(e Event) error {
	raw, ok := Encode(e)
	if !ok {
		return nil
	}
	if err := r.enc.Encode(raw); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}
