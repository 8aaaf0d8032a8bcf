package toolstate

import (
	"errors"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
)

func TestReducer_SingleCallAcrossDeltas(t *testing.T) {
	r := NewReducer()
	deltas := []*canon.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "get_weather"},
		{Index: 0, Arguments: `{"loc`},
		{Index: 0, Arguments: `ation":"SF"}`},
	}
	for _, d := range deltas {
		if err := r.Apply(d); err != nil {
			t.Fatalf("Apply(%+v) = %v, want nil", d, err)
		}
	}

	calls := r.Finish()
	if len(calls) != 1 {
		t.Fatalf("Finish() returned %d calls, want 1", len(calls))
	}
	want := canon.ToolCall{ID: "call_1", Name: "get_weather", Arguments: `{"location":"SF"}`}
	if calls[0] != want {
		t.Errorf("Finish()[0] = %+v, want %+v", calls[0], want)
	}
}

func TestReducer_NameSplitAcrossChunks(t *testing.T) {
	r := NewReducer()
	deltas := []*canon.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "get_"},
		{Index: 0, Name: "weather"},
	}
	for _, d := range deltas {
		if err := r.Apply(d); err != nil {
			t.Fatalf("Apply(%+v) = %v, want nil", d, err)
		}
	}
	calls := r.Finish()
	if len(calls) != 1 || calls[0].Name != "get_weather" {
		t.Fatalf("Finish() = %+v, want name %q", calls, "get_weather")
	}
}

func TestReducer_ParallelCallsByIndex(t *testing.T) {
	r := NewReducer()
	deltas := []*canon.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "a"},
		{Index: 1, ID: "call_2", Name: "b"},
		{Index: 0, Arguments: "{}"},
		{Index: 1, Arguments: "{}"},
	}
	for _, d := range deltas {
		if err := r.Apply(d); err != nil {
			t.Fatalf("Apply(%+v) = %v, want nil", d, err)
		}
	}
	calls := r.Finish()
	if len(calls) != 2 {
		t.Fatalf("Finish() returned %d calls, want 2", len(calls))
	}
	if calls[0].ID != "call_1" || calls[1].ID != "call_2" {
		t.Errorf("Finish() order = %+v, want call_1 then call_2", calls)
	}
}

func TestReducer_MalformedDeltaWithNoPriorID(t *testing.T) {
	r := NewReducer()
	err := r.Apply(&canon.ToolCallDelta{Index: 0, Arguments: "{}"})
	if !errors.Is(err, ErrMalformedDelta) {
		t.Fatalf("Apply() = %v, want ErrMalformedDelta", err)
	}
}

func TestReducer_FinishDropsIncompleteCalls(t *testing.T) {
	r := NewReducer()
	if err := r.Apply(&canon.ToolCallDelta{Index: 0, ID: "call_1"}); err != nil {
		t.Fatalf("Apply() = %v, want nil", err)
	}
	calls := r.Finish()
	if len(calls) != 0 {
		t.Errorf("Finish() = %+v, want empty (no name ever set)", calls)
	}
}
