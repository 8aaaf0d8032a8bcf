package variant

import (
	"context"
	"fmt"
	"sync"

	"github.com/vectorcast/gateway/internal/canon"
)

// Fuser synthesizes a single response from every candidate's output
// (§4.5.3). Unlike Evaluator (which just picks an index), Fuser produces
// new content, so it returns a full response rather than a selection.
type Fuser interface {
	Fuse(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (*canon.ProviderInferenceResponse, error)
}

// FuserFunc adapts a plain function to Fuser.
type FuserFunc func(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (*canon.ProviderInferenceResponse, error)

func (f FuserFunc) Fuse(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (*canon.ProviderInferenceResponse, error) {
	return f(ctx, candidates)
}

// MixtureOfN runs every candidate variant concurrently, then invokes Fuser
// with every candidate as context to synthesize a single answer. Fuser
// failure surfaces as variant failure, which C7's Function Dispatcher can
// then fall back from (§4.5.3).
type MixtureOfN struct {
	VariantName string
	Candidates  []Variant
	Fuser       Fuser
}

func (m *MixtureOfN) Name() string { return m.VariantName }

func (m *MixtureOfN) Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	if len(m.Candidates) == 0 {
		return nil, fmt.Errorf("variant %s: mixture-of-n has no candidates configured", m.VariantName)
	}

	results := make([]*canon.ProviderInferenceResponse, len(m.Candidates))
	errs := make([]error, len(m.Candidates))

	var wg sync.WaitGroup
	for i, cand := range m.Candidates {
		wg.Add(1)
		go func(i int, cand Variant) {
			defer wg.Done()
			results[i], errs[i] = cand.Infer(ctx, dispatcher, args)
		}(i, cand)
	}
	wg.Wait()

	var candidates []*canon.ProviderInferenceResponse
	for i, r := range results {
		if errs[i] == nil && r != nil {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("variant %s: all %d candidates failed: %v", m.VariantName, len(m.Candidates), errs)
	}

	fused, err := m.Fuser.Fuse(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("variant %s: fuser failed: %w", m.VariantName, err)
	}
	return fused, nil
}
