// Package providers defines the adapter contract every LLM provider binding
// implements (C2), grounded on internal/agent/provider_types.go's
// LLMProvider interface, generalized from the teacher's flat completion
// shape to the canonical types in internal/canon.
package providers

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
)

// BatchStatus is the provider-reported state of a submitted batch (§3, §4.9).
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchCompleted
	BatchFailed
)

// StartBatchResult is returned by StartBatch: the provider's opaque batch
// handle plus the raw request and response. It carries no status; the
// status comes from PollBatch.
type StartBatchResult struct {
	BatchParams []byte // opaque, provider-specific (e.g. {file_id, batch_id})
	RawRequest  string
	RawResponse string
}

// PollBatchResult is returned by PollBatch.
type PollBatchResult struct {
	Status   BatchStatus
	Outputs  map[string]canon.ProviderInferenceResponse // keyed by inference_id, only when Completed
	Errors   map[string]string                          // per-inference_id parse failures
	RawResponse string
}

// Provider is the contract every provider adapter implements (§4.1).
// Implementations are stateless between calls: all mutable reconciliation
// state for a single stream lives in that stream's reducer (§4.1 contract,
// §9 "Streaming reducer state").
type Provider interface {
	// Name identifies the provider for routing, logging, and error
	// attribution (e.g. "openai", "anthropic").
	Name() string

	// MakeBody serializes req into this provider's wire format for model.
	MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error)

	// ParseResponse parses a non-streaming raw response body into the
	// canonical response shape.
	ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error)

	// StreamEvents executes a streaming call and returns canonical chunks.
	// The returned channel is closed when the stream ends (successfully or
	// with an error reported via the final chunk's Err field) or when ctx
	// is cancelled.
	StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error)

	// StartBatch submits a batch of requests for asynchronous processing.
	StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*StartBatchResult, error)

	// PollBatch checks the status of a previously submitted batch and, on
	// completion, collects and converts its results.
	PollBatch(ctx context.Context, batchParams []byte) (*PollBatchResult, error)
}
