package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
)

// Orchestrator drives the Submit/Poll/Collect lifecycle over whatever
// Provider the caller names (§4.9); it does not know or care whether that
// provider actually supports batching — a provider returning "unsupported"
// from StartBatch (Bedrock, Gemini; see C2) surfaces here as an ordinary
// Submit-time failure, not a panic or invariant violation.
type Orchestrator struct {
	Store Store
}

// NewOrchestrator constructs an Orchestrator backed by store.
func NewOrchestrator(store Store) *Orchestrator {
	return &Orchestrator{Store: store}
}

// Submit implements §4.9's Submit step: ask provider to start the batch,
// then persist {batch_id, inference_ids, batch_params, status=Pending,
// raw_*, errors} via Store.
func (o *Orchestrator) Submit(ctx context.Context, provider providers.Provider, modelName, functionName, variantName string, reqs []*canon.ModelInferenceRequest) (*Request, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("batch: submit called with no requests")
	}

	result, err := provider.StartBatch(ctx, reqs, modelName)
	if err != nil {
		return nil, fmt.Errorf("batch: provider %s refused to start batch: %w", provider.Name(), err)
	}

	inferenceIDs := make([]string, len(reqs))
	for i, r := range reqs {
		inferenceIDs[i] = r.InferenceID
	}

	req := &Request{
		ID:                canon.NewID(),
		BatchID:           batchIDFromParams(result.BatchParams),
		BatchParams:       result.BatchParams,
		ModelName:         modelName,
		ModelProviderName: provider.Name(),
		Status:            StatusPending,
		FunctionName:      functionName,
		VariantName:       variantName,
		InferenceIDs:      inferenceIDs,
		RawRequest:        result.RawRequest,
		RawResponse:       result.RawResponse,
		Errors:            map[string]string{},
		Timestamp:         time.Now(),
	}

	if o.Store != nil {
		if err := o.Store.Save(req); err != nil {
			return nil, fmt.Errorf("batch: persisting submitted batch: %w", err)
		}
	}
	return req, nil
}

// Poll implements §4.9's Poll(batch_id) step: look the batch up, ask its
// provider for status, and on first transition to Completed/Failed, merge
// in outputs/errors and persist the update. Subsequent polls of an
// already-terminal batch are idempotent no-ops against the provider (the
// stored row is authoritative once terminal).
func (o *Orchestrator) Poll(ctx context.Context, provider providers.Provider, batchID string) (*Request, error) {
	req, err := o.load(batchID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return req, nil
	}

	result, err := provider.PollBatch(ctx, req.BatchParams)
	if err != nil {
		return nil, fmt.Errorf("batch: polling provider %s for batch %s: %w", provider.Name(), batchID, err)
	}

	req.Status = fromProviderStatus(result.Status)
	req.RawResponse = result.RawResponse
	if result.Outputs != nil {
		req.Outputs = result.Outputs
	}
	// A batch is Completed as long as its envelope parsed, even when
	// individual lines failed to parse (§4.9 "Failure modes" /
	// DS-3: "the batch as a whole is considered Completed if at least the
	// envelope parsed") — per-line failures land in Errors, not Status.
	if result.Errors != nil {
		for id, msg := range result.Errors {
			req.Errors[id] = msg
		}
	}

	if o.Store != nil {
		if err := o.Store.Save(req); err != nil {
			return nil, fmt.Errorf("batch: persisting polled batch: %w", err)
		}
	}
	return req, nil
}

// PollInference implements §4.9's Poll(batch_id, inference_id): the same
// lookup as Poll, scoped to a single inference's outcome.
func (o *Orchestrator) PollInference(ctx context.Context, provider providers.Provider, batchID, inferenceID string) (*canon.ProviderInferenceResponse, error) {
	req, err := o.Poll(ctx, provider, batchID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusCompleted {
		return nil, fmt.Errorf("batch: inference %s not ready, batch status is %s", inferenceID, req.Status)
	}
	if msg, failed := req.Errors[inferenceID]; failed {
		return nil, fmt.Errorf("batch: inference %s failed: %s", inferenceID, msg)
	}
	resp, ok := req.Outputs[inferenceID]
	if !ok {
		return nil, fmt.Errorf("batch: inference %s not found in batch %s", inferenceID, batchID)
	}
	return &resp, nil
}

func (o *Orchestrator) load(batchID string) (*Request, error) {
	if o.Store == nil {
		return nil, fmt.Errorf("batch: no store configured, cannot poll batch %s", batchID)
	}
	req, err := o.Store.Load(batchID)
	if err != nil {
		return nil, fmt.Errorf("batch: loading batch %s: %w", batchID, err)
	}
	return req, nil
}

func batchIDFromParams(raw []byte) string {
	var wrapper struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.BatchID == "" {
		return canon.NewID()
	}
	return wrapper.BatchID
}
