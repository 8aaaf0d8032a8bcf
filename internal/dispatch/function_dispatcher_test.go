package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/variant"
)

type fakeVariant struct {
	name string
	resp *canon.ProviderInferenceResponse
	err  error
	hits int
}

func (f *fakeVariant) Name() string { return f.name }
func (f *fakeVariant) Infer(ctx context.Context, d variant.Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	f.hits++
	return f.resp, f.err
}

func weight(w float64) *float64 { return &w }

func TestFunctionDispatcher_PinnedVariantSkipsSampling(t *testing.T) {
	a := &fakeVariant{name: "a", resp: &canon.ProviderInferenceResponse{}}
	b := &fakeVariant{name: "b", resp: &canon.ProviderInferenceResponse{}}
	fn := FunctionConfig{Name: "greet", Variants: []VariantEntry{
		{Name: "a", Variant: a, Weight: weight(1)},
		{Name: "b", Variant: b, Weight: weight(1)},
	}}

	fd := &FunctionDispatcher{}
	res, err := fd.Dispatch(context.Background(), fn, "ep1", "b", false, nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want nil", err)
	}
	if res.VariantName != "b" {
		t.Errorf("VariantName = %q, want b", res.VariantName)
	}
	if a.hits != 0 || b.hits != 1 {
		t.Errorf("hits a=%d b=%d, want a=0 b=1", a.hits, b.hits)
	}
}

func TestFunctionDispatcher_PinnedVariantFailureDoesNotFallback(t *testing.T) {
	a := &fakeVariant{name: "a", err: errors.New("boom")}
	b := &fakeVariant{name: "b", resp: &canon.ProviderInferenceResponse{}}
	fn := FunctionConfig{Name: "greet", Variants: []VariantEntry{
		{Name: "a", Variant: a, Weight: weight(1)},
		{Name: "b", Variant: b, Weight: weight(1)},
	}}

	fd := &FunctionDispatcher{}
	_, err := fd.Dispatch(context.Background(), fn, "ep1", "a", false, nil)
	if err == nil {
		t.Fatal("Dispatch() error = nil, want pinned-variant failure")
	}
	if b.hits != 0 {
		t.Errorf("b.hits = %d, want 0 (no fallback for pinned variant)", b.hits)
	}
}

func TestFunctionDispatcher_ZeroWeightNeverSampledButPinnable(t *testing.T) {
	zero := &fakeVariant{name: "zero", resp: &canon.ProviderInferenceResponse{}}
	positive := &fakeVariant{name: "pos", resp: &canon.ProviderInferenceResponse{}}
	fn := FunctionConfig{Name: "f", Variants: []VariantEntry{
		{Name: "zero", Variant: zero, Weight: weight(0)},
		{Name: "pos", Variant: positive, Weight: weight(1)},
	}}

	fd := &FunctionDispatcher{}
	for i := 0; i < 20; i++ {
		res, err := fd.Dispatch(context.Background(), fn, "ep-sample", "", false, nil)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if res.VariantName == "zero" {
			t.Fatal("zero-weight variant was sampled")
		}
	}

	res, err := fd.Dispatch(context.Background(), fn, "ep1", "zero", false, nil)
	if err != nil {
		t.Fatalf("pinning zero-weight variant failed: %v", err)
	}
	if res.VariantName != "zero" {
		t.Errorf("VariantName = %q, want zero", res.VariantName)
	}
}

func TestFunctionDispatcher_OmittedWeightNeverSampledOrTried(t *testing.T) {
	omitted := &fakeVariant{name: "omitted", resp: &canon.ProviderInferenceResponse{}}
	positive := &fakeVariant{name: "pos", resp: &canon.ProviderInferenceResponse{}}
	fn := FunctionConfig{Name: "f", Variants: []VariantEntry{
		{Name: "omitted", Variant: omitted, Weight: nil},
		{Name: "pos", Variant: positive, Weight: weight(1)},
	}}

	fd := &FunctionDispatcher{}
	res, err := fd.Dispatch(context.Background(), fn, "ep1", "", false, nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.VariantName != "pos" {
		t.Errorf("VariantName = %q, want pos", res.VariantName)
	}
	if omitted.hits != 0 {
		t.Errorf("omitted.hits = %d, want 0", omitted.hits)
	}
}

func TestFunctionDispatcher_FallsBackOnFailureInWeightDescendingOrder(t *testing.T) {
	high := &fakeVariant{name: "high", err: errors.New("high failed")}
	mid := &fakeVariant{name: "mid", err: errors.New("mid failed")}
	low := &fakeVariant{name: "low", resp: &canon.ProviderInferenceResponse{}}
	fn := FunctionConfig{Name: "f", Variants: []VariantEntry{
		{Name: "low", Variant: low, Weight: weight(1)},
		{Name: "high", Variant: high, Weight: weight(10)},
		{Name: "mid", Variant: mid, Weight: weight(5)},
	}}

	fd := &FunctionDispatcher{}
	res, err := fd.Dispatch(context.Background(), fn, "ep1", "", false, nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want eventual success via low", err)
	}
	if res.VariantName != "low" {
		t.Errorf("VariantName = %q, want low", res.VariantName)
	}
	if high.hits != 1 || mid.hits != 1 || low.hits != 1 {
		t.Errorf("hits high=%d mid=%d low=%d, want all 1", high.hits, mid.hits, low.hits)
	}
}

func TestFunctionDispatcher_ExhaustionSurfacesCompositeError(t *testing.T) {
	a := &fakeVariant{name: "a", err: errors.New("a failed")}
	b := &fakeVariant{name: "b", err: errors.New("b failed")}
	fn := FunctionConfig{Name: "f", Variants: []VariantEntry{
		{Name: "a", Variant: a, Weight: weight(1)},
		{Name: "b", Variant: b, Weight: weight(1)},
	}}

	fd := &FunctionDispatcher{}
	_, err := fd.Dispatch(context.Background(), fn, "ep1", "", false, nil)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error = %v, want *ExhaustedError", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Errorf("len(Attempts) = %d, want 2", len(exhausted.Attempts))
	}
}

func TestFunctionDispatcher_EpisodeSeededSamplingIsSticky(t *testing.T) {
	fn := func() FunctionConfig {
		return FunctionConfig{Name: "f", Variants: []VariantEntry{
			{Name: "a", Variant: &fakeVariant{name: "a", resp: &canon.ProviderInferenceResponse{}}, Weight: weight(1)},
			{Name: "b", Variant: &fakeVariant{name: "b", resp: &canon.ProviderInferenceResponse{}}, Weight: weight(1)},
			{Name: "c", Variant: &fakeVariant{name: "c", resp: &canon.ProviderInferenceResponse{}}, Weight: weight(1)},
		}}
	}

	fd := &FunctionDispatcher{}
	first, err := fd.Dispatch(context.Background(), fn(), "sticky-episode", "", false, nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		res, err := fd.Dispatch(context.Background(), fn(), "sticky-episode", "", false, nil)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if res.VariantName != first.VariantName {
			t.Errorf("VariantName = %q, want sticky %q", res.VariantName, first.VariantName)
		}
	}
}
