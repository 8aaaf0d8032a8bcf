package variant

import (
	"context"
	"fmt"
	"sync"

	"github.com/vectorcast/gateway/internal/canon"
)

// Evaluator picks the best candidate index from a set of candidate
// responses, or returns an error (in which case BestOfN falls back to
// candidate 0 per §4.5.2).
type Evaluator interface {
	Evaluate(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (int, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (int, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (int, error) {
	return f(ctx, candidates)
}

// BestOfN runs every candidate variant concurrently, then asks Evaluator to
// pick a winner (§4.5.2). Retries is the evaluator's retry budget; 0 means a
// single attempt, matching "retries = 0 means a single attempt".
type BestOfN struct {
	VariantName string
	Candidates  []Variant
	Evaluator   Evaluator
	Retries     int
}

func (b *BestOfN) Name() string { return b.VariantName }

func (b *BestOfN) Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	if len(b.Candidates) == 0 {
		return nil, fmt.Errorf("variant %s: best-of-n has no candidates configured", b.VariantName)
	}

	results := make([]*canon.ProviderInferenceResponse, len(b.Candidates))
	errs := make([]error, len(b.Candidates))

	var wg sync.WaitGroup
	for i, cand := range b.Candidates {
		wg.Add(1)
		go func(i int, cand Variant) {
			defer wg.Done()
			results[i], errs[i] = cand.Infer(ctx, dispatcher, args)
		}(i, cand)
	}
	wg.Wait()

	var candidates []*canon.ProviderInferenceResponse
	var okIdx []int
	for i, r := range results {
		if errs[i] == nil && r != nil {
			candidates = append(candidates, r)
			okIdx = append(okIdx, i)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("variant %s: all %d candidates failed: %v", b.VariantName, len(b.Candidates), errs)
	}

	winner := 0
	var evalErr error
	attempts := b.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		winner, evalErr = b.Evaluator.Evaluate(ctx, candidates)
		if evalErr == nil {
			break
		}
	}
	if evalErr != nil || winner < 0 || winner >= len(candidates) {
		return candidates[0], nil
	}
	return candidates[winner], nil
}
