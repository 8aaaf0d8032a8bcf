// Package variant implements the Variant Engine (C6): ChatCompletion,
// BestOfN, MixtureOfN, and ChainOfThought, each exposing the same infer
// contract so the Function Dispatcher (C7) can treat them interchangeably
// (§4.5).
package variant

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
)

// Dispatcher is the subset of the Model Router (C3) a variant needs: run a
// canonical request against a named model, with fallback already applied.
// Kept as an interface so variant tests can substitute a fake without
// depending on internal/router's concrete types.
type Dispatcher interface {
	Infer(ctx context.Context, model string, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error)
	InferStream(ctx context.Context, model string, req *canon.ModelInferenceRequest) (<-chan *canon.CompletionChunk, error)
}

// Variant is the common contract every variant kind satisfies (§4.5's
// "common infer(request, dispatcher, http_client) contract").
type Variant interface {
	// Name identifies this variant within its Function, used for pinning
	// (§4.5.4) and as the `variant_name` attribute on emitted spans (AS-1).
	Name() string
	// Infer renders/runs this variant against args and returns a canonical
	// response. dispatcher supplies model access. The variants in this
	// package call dispatcher.Infer only; none of them takes a stream flag
	// or exposes a streaming form of Infer.
	Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error)
}

// SamplingDefaults holds a variant's configured sampling parameters, merged
// with the request's own parameters per §4.5.1 ("request wins where set")
// via canon.SamplingParams.Merge.
type SamplingDefaults struct {
	Params canon.SamplingParams
}

// MergeSampling applies the "request wins where set" rule for a variant's
// configured defaults against the caller-supplied request override.
func MergeSampling(defaults SamplingDefaults, override canon.SamplingParams) canon.SamplingParams {
	return defaults.Params.Merge(override)
}
