package dispatch

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/variant"
)

// VariantEntry is one named variant within a function, carrying the weight
// rules of §4.5.4: Weight == nil means the weight was omitted (never
// sampled, never tried during fallback); a non-nil zero means weight = 0
// (never sampled, but pinnable by name).
type VariantEntry struct {
	Name    string
	Variant variant.Variant
	Weight  *float64
}

// FunctionConfig is the set of variants a function can dispatch to.
type FunctionConfig struct {
	Name     string
	Variants []VariantEntry
}

// Result is what the Function Dispatcher returns for one inference: the
// response plus which variant actually produced it, per §4.6's response
// envelope ("... variant_name").
type Result struct {
	Response    *canon.ProviderInferenceResponse
	VariantName string
	Dryrun      bool
}

// VariantError records one variant's failure during fallback, for the
// composite error on exhaustion (§4.6 step 3).
type VariantError struct {
	VariantName string
	Err         error
}

// ExhaustedError is returned when every candidate variant failed.
type ExhaustedError struct {
	FunctionName string
	Attempts     []VariantError
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("function %s: all %d variant(s) failed: %v", e.FunctionName, len(e.Attempts), e.Attempts)
}

// FunctionDispatcher implements §4.6: pin-or-sample variant selection,
// weight-descending fallback, episode-seeded sticky sampling, and dryrun's
// "disables persistence but not execution" rule (the dryrun flag is carried
// through on Result only — internal/dispatch has no persistence of its own
// to disable; the caller that would persist ChatInference/JsonInference
// rows is the one that reads Result.Dryrun and skips the write).
type FunctionDispatcher struct {
	Dispatcher variant.Dispatcher
}

// NewFunctionDispatcher constructs a dispatcher over the given
// variant.Dispatcher (typically a *ModelDispatcher).
func NewFunctionDispatcher(d variant.Dispatcher) *FunctionDispatcher {
	return &FunctionDispatcher{Dispatcher: d}
}

// Dispatch resolves fn's variant per §4.6 and runs it, falling back through
// remaining positive-weight variants on failure.
//
// pinnedVariant, when non-empty, selects that variant directly and skips
// sampling (§4.6 step 1); a pinned variant's own failure is NOT followed by
// fallback to other variants — naming a specific variant is explicit
// caller intent, and silently substituting a different one would violate
// it (an Open Question decision, recorded in DESIGN.md).
func (d *FunctionDispatcher) Dispatch(ctx context.Context, fn FunctionConfig, episodeID, pinnedVariant string, dryrun bool, args map[string]any) (*Result, error) {
	if pinnedVariant != "" {
		entry, ok := findVariant(fn.Variants, pinnedVariant)
		if !ok {
			return nil, fmt.Errorf("function %s: pinned variant %q not found", fn.Name, pinnedVariant)
		}
		resp, err := entry.Variant.Infer(ctx, d.Dispatcher, args)
		if err != nil {
			return nil, fmt.Errorf("function %s: pinned variant %q failed: %w", fn.Name, pinnedVariant, err)
		}
		return &Result{Response: resp, VariantName: entry.Name, Dryrun: dryrun}, nil
	}

	order := weightedOrder(fn.Variants, episodeID)
	if len(order) == 0 {
		return nil, fmt.Errorf("function %s: no variant with positive weight to sample", fn.Name)
	}

	var attempts []VariantError
	for _, entry := range order {
		resp, err := entry.Variant.Infer(ctx, d.Dispatcher, args)
		if err == nil {
			return &Result{Response: resp, VariantName: entry.Name, Dryrun: dryrun}, nil
		}
		attempts = append(attempts, VariantError{VariantName: entry.Name, Err: err})
	}
	return nil, &ExhaustedError{FunctionName: fn.Name, Attempts: attempts}
}

func findVariant(entries []VariantEntry, name string) (VariantEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return VariantEntry{}, false
}

// weightedOrder returns the candidate variants for sampling + fallback
// (§4.6 steps 2-3): the first entry is the episode-seeded weighted sample
// among positive-weight variants, and the rest are the remaining
// positive-weight variants in weight-descending order. Omitted-weight and
// zero-weight variants never appear here.
func weightedOrder(entries []VariantEntry, episodeID string) []VariantEntry {
	var candidates []VariantEntry
	for _, e := range entries {
		if e.Weight != nil && *e.Weight > 0 {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]VariantEntry, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return *sorted[i].Weight > *sorted[j].Weight })

	first := sampleWeighted(candidates, episodeID)

	order := make([]VariantEntry, 0, len(sorted))
	order = append(order, first)
	for _, e := range sorted {
		if e.Name != first.Name {
			order = append(order, e)
		}
	}
	return order
}

// sampleWeighted picks one variant proportional to weight, seeded by
// episodeID so repeated requests in the same episode are sticky (§4.5.4).
func sampleWeighted(candidates []VariantEntry, episodeID string) VariantEntry {
	var total float64
	for _, c := range candidates {
		total += *c.Weight
	}
	if total <= 0 {
		return candidates[0]
	}

	r := rand.New(rand.NewSource(episodeSeed(episodeID))).Float64() * total
	var cum float64
	for _, c := range candidates {
		cum += *c.Weight
		if r < cum {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

func episodeSeed(episodeID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(episodeID))
	return int64(h.Sum64())
}
