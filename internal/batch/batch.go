// Package batch implements the Batch Lifecycle (C9, §4.9): the
// provider-agnostic Submit → Pending → Completed/Failed state machine that
// sits above each adapter's own StartBatch/PollBatch (C2). Persisting the
// BatchRequest row itself is the Observability Store's job (out of scope
// per this module's external-collaborator boundary) — this package defines
// the entity and the transitions, and takes a Store interface so a real
// persistence layer can be plugged in without this package depending on it.
package batch

import (
	"time"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
)

// Status mirrors providers.BatchStatus but is the orchestration layer's own
// type: a batch that a provider adapter refuses to start (see C2's
// Bedrock/Gemini "batch not supported" stubs) never even reaches a
// providers.BatchStatus value, so this package needs a state its own
// provider-agnostic failures can occupy too.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func fromProviderStatus(s providers.BatchStatus) Status {
	switch s {
	case providers.BatchCompleted:
		return StatusCompleted
	case providers.BatchFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

// Request is the persisted entity named in §3/§6: "BatchRequest: id,
// batch_id, batch_params, model_name, model_provider_name, status,
// function_name, variant_name, raw_request, raw_response, errors,
// timestamp".
type Request struct {
	ID               string
	BatchID          string
	BatchParams      []byte
	ModelName        string
	ModelProviderName string
	Status           Status
	FunctionName     string
	VariantName      string
	InferenceIDs     []string
	RawRequest       string
	RawResponse      string
	Errors           map[string]string
	Outputs          map[string]canon.ProviderInferenceResponse
	Timestamp        time.Time
}

// Store persists and retrieves Request rows. The gateway's Observability
// Store (out of scope) is expected to implement this; nothing in this
// package depends on a concrete backend.
type Store interface {
	Save(req *Request) error
	Load(batchID string) (*Request, error)
}
