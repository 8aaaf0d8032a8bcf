package bedrock

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
)

// StartBatch and PollBatch are deliberately unimplemented: Bedrock's batch
// inference (CreateModelInvocationJob/GetModelInvocationJob) lives on the
// control-plane "bedrock" client, a separate service client from
// "bedrockruntime" that this adapter wires for Converse/ConverseStream.
// Wiring it would mean adding a dependency this package otherwise has no
// use for; see DESIGN.md's C9 entry. Callers get a clear Config error
// rather than a call that silently does the wrong thing.
func (a *Adapter) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	return nil, router.NewConfig("bedrock: batch inference is not supported by this adapter")
}

func (a *Adapter) PollBatch(ctx context.Context, batchParams []byte) (*providers.PollBatchResult, error) {
	return nil, router.NewConfig("bedrock: batch inference is not supported by this adapter")
}
