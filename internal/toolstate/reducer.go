// Package toolstate implements the tool-use state model (§4.3): tool_choice
// resolution, the streaming tool-call reducer, and multi-turn tool-result
// validation. It is independent of any single provider adapter — every
// adapter's StreamEvents emits canon.ToolCallDelta values addressed by index
// (§4.1, "stateless between calls"), and this package is where those deltas
// get consolidated into complete calls.
package toolstate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vectorcast/gateway/internal/canon"
)

// InProgressCall accumulates one tool call across an in-progress assistant
// turn, addressed by its position in the stream.
type InProgressCall struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Reducer consolidates a sequence of canon.ToolCallDelta values into
// complete tool calls, grounded on the index-keyed accumulation pattern in
// internal/agent/providers/openai.go's processStream
// (map[int]*models.ToolCall), generalized to a provider-neutral type so
// every adapter's StreamEvents output can be fed through the same reducer
// rather than each reimplementing accumulation.
//
// A Reducer is built for a single assistant turn and discarded afterward;
// it holds no state useful across turns (§4.1 "stateless between calls").
type Reducer struct {
	calls map[int]*InProgressCall
	order []int
}

// NewReducer returns an empty Reducer ready to consume deltas.
func NewReducer() *Reducer {
	return &Reducer{calls: make(map[int]*InProgressCall)}
}

// Apply consolidates one delta per §4.3's streaming reconstruction rules:
//   - If Name is present, it is appended (providers may split names across
//     chunks).
//   - If Arguments is present, it is appended.
//   - If ID is present, it is set (or overwritten) at that slot.
//   - A delta at an index with no prior id ever seen, and no ID on this
//     delta either, is malformed — ErrMalformedDelta is returned.
func (r *Reducer) Apply(delta *canon.ToolCallDelta) error {
	call, seen := r.calls[delta.Index]
	if !seen {
		if delta.ID == "" {
			return fmt.Errorf("%w: index %d introduced with no id", ErrMalformedDelta, delta.Index)
		}
		call = &InProgressCall{Index: delta.Index}
		r.calls[delta.Index] = call
		r.order = append(r.order, delta.Index)
	}
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Name != "" {
		call.Name += delta.Name
	}
	if delta.Arguments != "" {
		call.Arguments += delta.Arguments
	}
	return nil
}

// Finish returns every accumulated call as a canon.ToolCall, in the order
// their index was first introduced. Calls with no id or name are dropped
// (an adapter that emits a half-formed slot and never completes it should
// not surface a broken tool call to the caller).
func (r *Reducer) Finish() []canon.ToolCall {
	out := make([]canon.ToolCall, 0, len(r.order))
	for _, idx := range r.order {
		c := r.calls[idx]
		if c.ID == "" || c.Name == "" {
			continue
		}
		out = append(out, canon.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments})
	}
	return out
}

// Indices returns the set of indices currently tracked, sorted ascending.
// Exposed mainly for tests asserting the reducer saw exactly the slots
// expected.
func (r *Reducer) Indices() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	sort.Ints(out)
	return out
}

// ErrMalformedDelta is returned by Reducer.Apply per §4.3: "If a delta
// references an index with no prior id ever seen, emit an error (malformed
// stream)."
var ErrMalformedDelta = errors.New("toolstate: malformed tool-call stream")
