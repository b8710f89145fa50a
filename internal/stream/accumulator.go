package stream

import (
	"strings"
)

// DefaultMaxArgumentBytes caps a single invocation's argument buffer.
const DefaultMaxArgumentBytes = 1 << 20

// Invocation is one tool call whose arguments may arrive in fragments.
type Invocation struct {
	ID   string
	Tool string

	buf strings.Builder

	// Args holds the parsed argument object once the buffer is valid JSON.
	Args        map[string]any
	Specialist  string
	Description string
	Dispatched  bool
	// Overflowed is set when the buffer exceeded the size cap. An overflowed
	// invocation never dispatches and its result is attributed as unknown.
	Overflowed bool
}

// Buffered returns the accumulated argument text.
func (inv *Invocation) Buffered() string {
	return inv.buf.String()
}

// Accumulator buffers streamed tool-call arguments per invocation id for a
// single turn. It is not safe for concurrent use; each turn owns its own.
type Accumulator struct {
	invocations map[string]*Invocation
	order       []string
	current     string
	maxBytes    int
}

// NewAccumulator returns an empty accumulator. maxBytes caps each buffer;
// zero or negative means unbounded.
func NewAccumulator(maxBytes int) *Accumulator {
	return &Accumulator{
		invocations: make(map[string]*Invocation),
		maxBytes:    maxBytes,
	}
}

// Start creates or resets the buffer for id and makes it the current
// invocation for fragments that arrive without an id. Starting an id that has
// already dispatched only updates the current pointer.
func (a *Accumulator) Start(id, tool string) {
	if id == "" {
		return
	}
	a.current = id

	inv, ok := a.invocations[id]
	if !ok {
		a.invocations[id] = &Invocation{ID: id, Tool: tool}
		a.order = append(a.order, id)
		return
	}
	if inv.Dispatched {
		return
	}
	inv.buf.Reset()
	inv.Args = nil
	inv.Overflowed = false
	if tool != "" {
		inv.Tool = tool
	}
}

// Append adds fragment to the buffer for id, creating the buffer when it does
// not exist. An empty id falls back to the current invocation. It returns the
// invocation the fragment was routed to, or nil when no invocation can be
// identified. Fragments for dispatched or overflowed invocations are dropped.
func (a *Accumulator) Append(id, fragment string) *Invocation {
	if id == "" {
		id = a.current
	}
	if id == "" {
		return nil
	}

	inv, ok := a.invocations[id]
	if !ok {
		inv = &Invocation{ID: id}
		a.invocations[id] = inv
		a.order = append(a.order, id)
		a.current = id
	}
	if inv.Dispatched || inv.Overflowed {
		return inv
	}

	if a.maxBytes > 0 && inv.buf.Len()+len(fragment) > a.maxBytes {
		inv.Overflowed = true
		inv.buf.Reset()
		return inv
	}
	inv.buf.WriteString(fragment)
	return inv
}

// Get returns the invocation for id.
func (a *Accumulator) Get(id string) (*Invocation, bool) {
	inv, ok := a.invocations[id]
	return inv, ok
}

// Invocations returns all invocations in the order they were first seen.
func (a *Accumulator) Invocations() []*Invocation {
	out := make([]*Invocation, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.invocations[id])
	}
	return out
}
