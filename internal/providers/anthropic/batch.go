package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
)

// batchParams is the opaque blob persisted in BatchRequest.batch_params
// (§3) for this adapter: Anthropic's Message Batches API only needs the
// batch id to poll, unlike OpenAI's two-step file-then-batch handle.
type batchParams struct {
	BatchID string `json:"batch_id"`
}

// StartBatch implements §4.9 Submit against Anthropic's Message Batches
// API: each request becomes one batch entry keyed by its inference_id,
// submitted in a single call rather than OpenAI's upload-then-submit
// two-step (§DS-3).
func (a *Adapter) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	if !a.hasKey {
		return nil, router.NewConfig("anthropic: api key not configured")
	}

	resolvedModel := a.modelOrDefault(model)
	entries := make([]anthropic.MessageBatchNewParamsRequest, 0, len(reqs))
	for _, r := range reqs {
		params, err := a.buildParams(r, resolvedModel)
		if err != nil {
			return nil, err
		}
		entries = append(entries, anthropic.MessageBatchNewParamsRequest{
			CustomID: r.InferenceID,
			Params:   anthropic.MessageBatchNewParamsRequestParams(params),
		})
	}

	rawReq, _ := json.Marshal(entries)

	batch, err := a.client.Messages.Batches.New(ctx, anthropic.MessageBatchNewParams{Requests: entries})
	if err != nil {
		return nil, router.NewInferenceServer("anthropic", resolvedModel, 0, string(rawReq), "", err)
	}

	params := batchParams{BatchID: batch.ID}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	rawResp, _ := json.Marshal(batch)

	return &providers.StartBatchResult{
		BatchParams: rawParams,
		RawRequest:  string(rawReq),
		RawResponse: string(rawResp),
	}, nil
}

// mapBatchStatus is adapter-local (§DS-3): Anthropic reports
// processing_status as in_progress/canceling/ended, distinct from OpenAI's
// naming.
func mapBatchStatus(processingStatus string, resultsURL string) providers.BatchStatus {
	switch processingStatus {
	case "ended":
		if resultsURL == "" {
			return providers.BatchFailed
		}
		return providers.BatchCompleted
	case "canceling":
		return providers.BatchFailed
	default: // in_progress
		return providers.BatchPending
	}
}

type batchResultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string          `json:"type"` // succeeded, errored, canceled, expired
		Message json.RawMessage `json:"message"`
		Error   *struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"error"`
	} `json:"result"`
}

// PollBatch implements §4.9 Poll + Collect against the Message Batches API:
// on ended, stream the results JSONL and convert each succeeded line via
// ParseResponse; a per-line failure is recorded without failing the rest of
// the batch (§4.9 "Failure modes").
func (a *Adapter) PollBatch(ctx context.Context, rawParams []byte) (*providers.PollBatchResult, error) {
	if !a.hasKey {
		return nil, router.NewConfig("anthropic: api key not configured")
	}
	var params batchParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return nil, router.NewSerialization(err)
	}

	batch, err := a.client.Messages.Batches.Get(ctx, params.BatchID)
	if err != nil {
		return nil, router.NewInferenceServer("anthropic", "", 0, "", "", err)
	}

	status := mapBatchStatus(string(batch.ProcessingStatus), batch.ResultsURL)
	rawResp, _ := json.Marshal(batch)
	result := &providers.PollBatchResult{Status: status, RawResponse: string(rawResp)}
	if status != providers.BatchCompleted {
		return result, nil
	}

	resultsStream, err := a.client.Messages.Batches.ResultsStreaming(ctx, params.BatchID)
	if err != nil {
		return nil, router.NewInferenceServer("anthropic", "", 0, "", "", err)
	}
	defer resultsStream.Close()

	outputs := make(map[string]canon.ProviderInferenceResponse)
	parseErrors := make(map[string]string)

	scanner := bufio.NewScanner(resultsStream)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rl batchResultLine
		if err := json.Unmarshal([]byte(line), &rl); err != nil {
			parseErrors["unknown"] = err.Error()
			continue
		}
		switch rl.Result.Type {
		case "succeeded":
			resp, err := a.ParseResponse(ctx, rl.Result.Message, canon.Latency{Kind: canon.LatencyNonStreaming}, nil)
			if err != nil {
				parseErrors[rl.CustomID] = err.Error()
				continue
			}
			outputs[rl.CustomID] = *resp
		case "errored":
			msg := "anthropic batch entry errored"
			if rl.Result.Error != nil && rl.Result.Error.Error.Message != "" {
				msg = rl.Result.Error.Error.Message
			}
			parseErrors[rl.CustomID] = msg
		default: // canceled, expired
			parseErrors[rl.CustomID] = "batch entry " + rl.Result.Type
		}
	}
	if err := scanner.Err(); err != nil {
		parseErrors["unknown"] = err.Error()
	}

	result.Outputs = outputs
	result.Errors = parseErrors
	return result, nil
}
