package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
)

// batchParams is the opaque blob persisted in BatchRequest.batch_params
// (§3), matching OpenAIBatchParams{file_id, batch_id} in
// original_source/tensorzero-core/src/providers/openai/mod.rs.
type batchParams struct {
	FileID  string            `json:"file_id"`
	BatchID string            `json:"batch_id"`
	ByLine  map[string]string `json:"by_line"` // custom_id -> inference_id, identity here but kept explicit
}

type batchLine struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     json.RawMessage `json:"body"`
}

// StartBatch implements §4.9 Submit: serialize each request to the
// provider's batch line format, upload as a single artifact, start the
// batch job. Grounded on start_batch_inference in original_source.
func (a *Adapter) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	if a.client == nil {
		return nil, router.NewConfig("openai: api key not configured")
	}

	var buf bytes.Buffer
	byLine := make(map[string]string, len(reqs))
	for _, r := range reqs {
		body, err := a.MakeBody(ctx, r, model)
		if err != nil {
			return nil, err
		}
		line := batchLine{CustomID: r.InferenceID, Method: "POST", URL: "/v1/chat/completions", Body: body}
		enc, err := json.Marshal(line)
		if err != nil {
			return nil, router.NewSerialization(err)
		}
		buf.Write(enc)
		buf.WriteByte('\n')
		byLine[r.InferenceID] = r.InferenceID
	}

	file, err := a.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    fmt.Sprintf("batch-%s.jsonl", canon.NewID()),
		Bytes:   buf.Bytes(),
		Purpose: openai.PurposeBatch,
	})
	if err != nil {
		return nil, router.NewInferenceServer("openai", model, 0, buf.String(), "", err)
	}

	batch, err := a.client.CreateBatch(ctx, openai.CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         "/v1/chat/completions",
		CompletionWindow: "24h",
	})
	if err != nil {
		return nil, router.NewInferenceServer("openai", model, 0, buf.String(), "", err)
	}

	params := batchParams{FileID: file.ID, BatchID: batch.ID, ByLine: byLine}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	rawResp, _ := json.Marshal(batch)

	return &providers.StartBatchResult{
		BatchParams: rawParams,
		RawRequest:  buf.String(),
		RawResponse: string(rawResp),
	}, nil
}

// mapBatchStatus is adapter-local (§DS-3): each provider names its batch
// states differently, so this table is not shared across adapters.
func mapBatchStatus(raw string) providers.BatchStatus {
	switch raw {
	case "completed":
		return providers.BatchCompleted
	case "failed", "expired", "cancelled":
		return providers.BatchFailed
	default: // validating, in_progress, finalizing, cancelling
		return providers.BatchPending
	}
}

// PollBatch implements §4.9 Poll + Collect: query the provider; on
// Completed, download the result artifact, parse line-delimited responses,
// match each by custom_id, and convert via ParseResponse. A per-line parse
// failure is recorded against that line without failing the rest of the
// batch (§4.9 "Failure modes").
func (a *Adapter) PollBatch(ctx context.Context, rawParams []byte) (*providers.PollBatchResult, error) {
	if a.client == nil {
		return nil, router.NewConfig("openai: api key not configured")
	}
	var params batchParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return nil, router.NewSerialization(err)
	}

	batch, err := a.client.RetrieveBatch(ctx, params.BatchID)
	if err != nil {
		return nil, router.NewInferenceServer("openai", "", 0, "", "", err)
	}

	status := mapBatchStatus(string(batch.Status))
	rawResp, _ := json.Marshal(batch)
	result := &providers.PollBatchResult{Status: status, RawResponse: string(rawResp)}
	if status != providers.BatchCompleted {
		return result, nil
	}
	if batch.OutputFileID == "" {
		result.Status = providers.BatchFailed
		return result, nil
	}

	content, err := a.client.GetFileContent(ctx, batch.OutputFileID)
	if err != nil {
		return nil, router.NewInferenceServer("openai", "", 0, "", "", err)
	}
	defer content.Close()

	outputs := make(map[string]canon.ProviderInferenceResponse)
	parseErrors := make(map[string]string)

	scanner := bufio.NewScanner(content)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		lineText := strings.TrimSpace(scanner.Text())
		if lineText == "" {
			continue
		}
		var outLine struct {
			CustomID string `json:"custom_id"`
			Response struct {
				Body json.RawMessage `json:"body"`
			} `json:"response"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(lineText), &outLine); err != nil {
			// envelope-level line could not even be parsed; record under a
			// synthetic key so the batch as a whole still counts as
			// Completed (§4.9).
			parseErrors["unknown"] = err.Error()
			continue
		}
		if outLine.Error != nil {
			parseErrors[outLine.CustomID] = outLine.Error.Message
			continue
		}
		resp, err := a.ParseResponse(ctx, outLine.Response.Body, canon.Latency{Kind: canon.LatencyNonStreaming}, nil)
		if err != nil {
			parseErrors[outLine.CustomID] = err.Error()
			continue
		}
		outputs[outLine.CustomID] = *resp
	}
	if err := scanner.Err(); err != nil {
		parseErrors["unknown"] = err.Error()
	}

	result.Outputs = outputs
	result.Errors = parseErrors
	return result, nil
}
