package stream

import (
	"context"
	"strings"
	"time"
)

// DefaultOrchestratorNode is the node whose text forms the turn's response.
const DefaultOrchestratorNode = "model"

// silentNodes never open a section of their own.
var silentNodes = map[string]bool{
	"":          true,
	"__start__": true,
}

// IsSilentNode reports whether node is excluded from boundary tracking.
func IsSilentNode(node string) bool {
	return silentNodes[node]
}

// Notification is a derived, presentation-neutral output of the driver.
type Notification interface {
	notification()
}

// Boundary marks a node transition. From is empty for the first node of a
// turn; To is empty and Final is set when the turn ends.
type Boundary struct {
	From         string
	To           string
	PhaseElapsed time.Duration
	TurnElapsed  time.Duration
	Final        bool
}

// Text is assistant text emitted by a node.
type Text struct {
	Node    string
	Content string
}

// Dispatch is emitted once per invocation when its arguments first parse.
type Dispatch struct {
	Node         string
	InvocationID string
	Tool         string
	Specialist   string
	Description  string
}

// Result is emitted for every tool result, attributed or not. Seq counts
// results within the current node, starting at 1.
type Result struct {
	Node         string
	InvocationID string
	Tool         string
	Attribution  Attribution
	Seq          int
	Content      string
	IsError      bool
}

func (Boundary) notification() {}
func (Text) notification()     {}
func (Dispatch) notification() {}
func (Result) notification()   {}

// Summary describes a completed turn.
type Summary struct {
	Response   string
	Dispatches []Dispatch
	Results    []Result
	Elapsed    time.Duration
}

// Options configures a Driver.
type Options struct {
	// Attributor resolves result ownership. Nil uses the default keyword table.
	Attributor *Attributor
	// MaxArgumentBytes caps each invocation's argument buffer. Zero means
	// unbounded.
	MaxArgumentBytes int
	// OrchestratorNode names the node whose text is collected as the
	// response. Empty means DefaultOrchestratorNode.
	OrchestratorNode string
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Driver processes the events of one turn in arrival order. A Driver holds
// per-turn state and must not be reused or shared across turns.
type Driver struct {
	acc          *Accumulator
	attr         *Attributor
	orchestrator string
	now          func() time.Time

	started   bool
	turnStart time.Time
	node      string
	nodeStart time.Time
	seq       int
	finished  bool

	response strings.Builder
	summary  Summary
}

// NewDriver returns a driver for a single turn.
func NewDriver(opts Options) *Driver {
	d := &Driver{
		acc:          NewAccumulator(opts.MaxArgumentBytes),
		attr:         opts.Attributor,
		orchestrator: opts.OrchestratorNode,
		now:          opts.Now,
	}
	if d.attr == nil {
		d.attr = NewAttributor(nil)
	}
	if d.orchestrator == "" {
		d.orchestrator = DefaultOrchestratorNode
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Accumulator exposes the turn's invocation state.
func (d *Driver) Accumulator() *Accumulator {
	return d.acc
}

// Handle processes one event and returns the notifications it produced, in
// order. Unknown events produce nothing.
func (d *Driver) Handle(e Event) []Notification {
	kind := Classify(e)
	if kind == KindUnknown || d.finished {
		return nil
	}
	now := d.now()
	if !d.started {
		d.started = true
		d.turnStart = now
	}

	var out []Notification
	if b, ok := d.transition(e.NodeLabel(), now); ok {
		out = append(out, b)
	}

	switch v := deref(e).(type) {
	case TextDelta:
		if v.Text == "" {
			break
		}
		if v.Node == d.orchestrator {
			d.response.WriteString(v.Text)
		}
		out = append(out, Text{Node: v.Node, Content: v.Text})

	case ToolCallStart:
		for _, c := range v.Calls {
			d.acc.Start(c.ID, c.Name)
		}

	case ToolCallFragment:
		for _, c := range v.Chunks {
			inv := d.acc.Append(c.ID, c.Args)
			if Resolve(inv) {
				out = append(out, d.dispatch(v.Node, inv))
			}
		}

	case ToolResult:
		inv, _ := d.acc.Get(v.InvocationID)
		// The last fragment may not have been resolved if the provider
		// reordered a trailing chunk behind the result.
		if Resolve(inv) {
			out = append(out, d.dispatch(v.Node, inv))
		}
		tool := v.Tool
		if tool == "" && inv != nil {
			tool = inv.Tool
		}
		d.seq++
		r := Result{
			Node:         v.Node,
			InvocationID: v.InvocationID,
			Tool:         tool,
			Attribution:  d.attr.Attribute(inv, v.Content),
			Seq:          d.seq,
			Content:      v.Content,
			IsError:      v.IsError,
		}
		d.summary.Results = append(d.summary.Results, r)
		out = append(out, r)
	}
	return out
}

// Finish closes the open node and returns the final boundary, if any. Calls
// after the first return nothing.
func (d *Driver) Finish() []Notification {
	if d.finished {
		return nil
	}
	d.finished = true
	if !d.started {
		return nil
	}
	now := d.now()
	d.summary.Elapsed = now.Sub(d.turnStart)
	if d.node == "" {
		return nil
	}
	return []Notification{Boundary{
		From:         d.node,
		PhaseElapsed: now.Sub(d.nodeStart),
		TurnElapsed:  now.Sub(d.turnStart),
		Final:        true,
	}}
}

// Summary returns the turn summary collected so far.
func (d *Driver) Summary() *Summary {
	s := d.summary
	s.Response = d.response.String()
	s.Dispatches = append([]Dispatch(nil), d.summary.Dispatches...)
	s.Results = append([]Result(nil), d.summary.Results...)
	if !d.finished && d.started {
		s.Elapsed = d.now().Sub(d.turnStart)
	}
	return &s
}

// Run drives events until the channel closes, passing every notification to
// emit. It stops early when ctx is done or emit fails; per-turn state is then
// discarded with the driver.
func (d *Driver) Run(ctx context.Context, events <-chan Event, emit func(Notification) error) (*Summary, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case e, ok := <-events:
			if !ok {
				for _, n := range d.Finish() {
					if err := emit(n); err != nil {
						return nil, err
					}
				}
				return d.Summary(), nil
			}
			for _, n := range d.Handle(e) {
				if err := emit(n); err != nil {
					return nil, err
				}
			}
		}
	}
}

func (d *Driver) transition(node string, now time.Time) (Boundary, bool) {
	if IsSilentNode(node) || node == d.node {
		return Boundary{}, false
	}
	b := Boundary{From: d.node, To: node, TurnElapsed: now.Sub(d.turnStart)}
	if d.node != "" {
		b.PhaseElapsed = now.Sub(d.nodeStart)
	}
	d.node = node
	d.nodeStart = now
	d.seq = 0
	return b, true
}

func (d *Driver) dispatch(node string, inv *Invocation) Dispatch {
	disp := Dispatch{
		Node:         node,
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Specialist:   inv.Specialist,
		Description:  inv.Description,
	}
	d.summary.Dispatches = append(d.summary.Dispatches, disp)
	return disp
}

func deref(e Event) Event {
	switch v := e.(type) {
	case *TextDelta:
		return *v
	case *ToolCallStart:
		return *v
	case *ToolCallFragment:
		return *v
	case *ToolResult:
		return *v
	case *NodeMarker:
		return *v
	}
	return e
}
