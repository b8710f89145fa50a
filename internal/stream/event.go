// Package stream correlates the provider event stream of one conversational
// turn. It classifies events, buffers streamed tool-call arguments per
// invocation, dispatches each invocation once its arguments parse, and
// attributes tool results to the specialist that produced them.
package stream

// Kind is the classified kind of a provider event.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindToolCallStart
	KindToolCallFragment
	KindToolResult
	KindNodeBoundary
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindToolCallStart:
		return "tool_call_start"
	case KindToolCallFragment:
		return "tool_call_fragment"
	case KindToolResult:
		return "tool_result"
	case KindNodeBoundary:
		return "node"
	default:
		return "unknown"
	}
}

// Event is one provider event. Each concrete type carries only the fields
// valid for its kind, plus the node (phase) that produced it.
type Event interface {
	Kind() Kind
	NodeLabel() string
}

// TextDelta is a fragment of assistant text.
type TextDelta struct {
	Node string
	Text string
}

// ToolCall names one tool invocation announced by the model.
type ToolCall struct {
	ID   string
	Name string
}

// ToolCallStart announces one or more tool invocations.
type ToolCallStart struct {
	Node  string
	Calls []ToolCall
}

// ArgChunk is a fragment of an invocation's JSON arguments. ID may be empty
// when the provider only tags the first chunk of a call.
type ArgChunk struct {
	ID   string
	Args string
}

// ToolCallFragment carries streamed argument fragments.
type ToolCallFragment struct {
	Node   string
	Chunks []ArgChunk
}

// ToolResult is the output of a finished tool invocation.
type ToolResult struct {
	Node         string
	InvocationID string
	Tool         string
	Content      string
	// IsError marks a failed tool run; Content holds the failure text.
	IsError bool
}

// NodeMarker signals that a node started emitting, without payload.
type NodeMarker struct {
	Node string
}

func (TextDelta) Kind() Kind        { return KindText }
func (ToolCallStart) Kind() Kind    { return KindToolCallStart }
func (ToolCallFragment) Kind() Kind { return KindToolCallFragment }
func (ToolResult) Kind() Kind       { return KindToolResult }
func (NodeMarker) Kind() Kind       { return KindNodeBoundary }

func (e TextDelta) NodeLabel() string        { return e.Node }
func (e ToolCallStart) NodeLabel() string    { return e.Node }
func (e ToolCallFragment) NodeLabel() string { return e.Node }
func (e ToolResult) NodeLabel() string       { return e.Node }
func (e NodeMarker) NodeLabel() string       { return e.Node }

// Classify returns the kind of e. Nil, nil-pointer or foreign events are
// KindUnknown.
func Classify(e Event) Kind {
	switch v := e.(type) {
	case TextDelta, ToolCallStart, ToolCallFragment, ToolResult, NodeMarker:
		return v.Kind()
	case *TextDelta:
		if v != nil {
			return KindText
		}
	case *ToolCallStart:
		if v != nil {
			return KindToolCallStart
		}
	case *ToolCallFragment:
		if v != nil {
			return KindToolCallFragment
		}
	case *ToolResult:
		if v != nil {
			return KindToolResult
		}
	case *NodeMarker:
		if v != nil {
			return KindNodeBoundary
		}
	}
	return KindUnknown
}

// kindNames maps provider-specific kind strings to kinds. Providers and agent
// frameworks disagree on naming, so several spellings land on each kind.
var kindNames = map[string]Kind{
	"ai":                  KindText,
	"AIMessageChunk":      KindText,
	"text":                KindText,
	"text_delta":          KindText,
	"content_delta":       KindText,
	"tool_call":           KindToolCallStart,
	"tool_calls":          KindToolCallStart,
	"tool_start":          KindToolCallStart,
	"tool_use":            KindToolCallStart,
	"content_block_start": KindToolCallStart,
	"tool_call_chunk":     KindToolCallFragment,
	"tool_call_chunks":    KindToolCallFragment,
	"tool_delta":          KindToolCallFragment,
	"input_json_delta":    KindToolCallFragment,
	"tool":                KindToolResult,
	"ToolMessage":         KindToolResult,
	"tool_result":         KindToolResult,
	"node":                KindNodeBoundary,
	"node_start":          KindNodeBoundary,
}

// ClassifyKind maps a provider kind string to a Kind.
func ClassifyKind(s string) Kind {
	if k, ok := kindNames[s]; ok {
		return k
	}
	return KindUnknown
}
