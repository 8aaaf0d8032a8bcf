// Package dispatch implements the Function Dispatcher (C7): weighted
// variant sampling with pinning/zero-weight/omitted-weight rules and
// episode-seeded stickiness (§4.6), plus ModelDispatcher, the concrete
// variant.Dispatcher that wires C3 (Model Router) and C2 (Provider
// Adapters) together for variants to call. ModelDispatcher lives here
// rather than in internal/router because internal/providers imports
// internal/router for its error taxonomy — router cannot import the
// adapters back without a cycle, so the package that holds both
// (internal/dispatch) is where they get wired.
package dispatch

import (
	"context"
	"time"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
	"github.com/vectorcast/gateway/internal/stream"
)

// ModelDispatcher implements variant.Dispatcher: it resolves a model name to
// a router.Model, runs RunWithFallback over its providers, and aggregates
// each provider's canonical chunk stream into a single
// ProviderInferenceResponse (§4.7's "produced identically whether streamed
// or blocking" — every adapter in this module only exposes StreamEvents for
// live calls, so the blocking path is always aggregate-then-return).
type ModelDispatcher struct {
	Models    map[string]router.Model
	Providers map[string]providers.Provider
	OnAttempt router.OnAttempt
}

// NewModelDispatcher constructs a dispatcher over the given model and
// provider registries.
func NewModelDispatcher(models map[string]router.Model, provs map[string]providers.Provider) *ModelDispatcher {
	return &ModelDispatcher{Models: models, Providers: provs}
}

// Infer runs model to completion and returns its aggregated response.
func (d *ModelDispatcher) Infer(ctx context.Context, model string, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	chunks, err := d.InferStream(ctx, model, req)
	if err != nil {
		return nil, err
	}
	return stream.Aggregate(ctx, chunks, time.Now())
}

// InferStream runs RunWithFallback over model's providers, returning the
// winning provider's raw chunk channel. Fallback happens at call-start
// time: if a provider's StreamEvents call itself fails (e.g. auth error
// before any bytes are read), the router tries the next provider; once a
// channel is returned, the caller consumes it directly — this package does
// not retry mid-stream (per-provider retry-until-first-byte is
// providers.BaseAdapter's job, not the router's).
func (d *ModelDispatcher) InferStream(ctx context.Context, model string, req *canon.ModelInferenceRequest) (<-chan *canon.CompletionChunk, error) {
	m, ok := d.Models[model]
	if !ok {
		return nil, router.NewConfig("dispatch: unknown model " + model)
	}

	result, err := router.RunWithFallback(ctx, m, func(ctx context.Context, entry router.ProviderEntry) (<-chan *canon.CompletionChunk, error) {
		p, ok := d.Providers[entry.ProviderName]
		if !ok {
			return nil, router.NewConfig("dispatch: unknown provider " + entry.ProviderName)
		}
		// entry.Credential.Resolve (§4.2 Static/Dynamic/WithFallback) is
		// applied when d.Providers is built, not per call: every adapter in
		// internal/providers bakes its credential into the SDK client at
		// construction (New(apiKey)/New(ctx, cfg)), so a request-scoped
		// CredentialBag would need a per-call client rebuild no adapter here
		// supports. The HTTP layer that would carry such a bag is out of
		// scope (see SPEC_FULL.md external interfaces); CredentialStrategy
		// itself is exercised directly by internal/router's own tests.
		return p.StreamEvents(ctx, req, model)
	}, d.OnAttempt)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}
