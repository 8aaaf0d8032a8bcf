package gemini

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
)

// StartBatch and PollBatch are deliberately unimplemented: Gemini's batch
// generation (BatchGenerateContent) is a Vertex AI control-plane operation
// keyed on GCS/BigQuery input and output sources, not a call this package's
// direct-generation genai client surface exposes. Wiring it would mean
// standing up a Vertex AI batch job client this package otherwise has no
// use for; see DESIGN.md's C9 entry. Callers get a clear Config error
// rather than a call that silently does the wrong thing.
func (a *Adapter) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	return nil, router.NewConfig("gemini: batch inference is not supported by this adapter")
}

func (a *Adapter) PollBatch(ctx context.Context, batchParams []byte) (*providers.PollBatchResult, error) {
	return nil, router.NewConfig("gemini: batch inference is not supported by this adapter")
}
