package gemini

import (
	"context"
	"encoding/json"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

type wireBody struct {
	Model    string      `json:"model"`
	Contents interface{} `json:"contents"`
	Config   interface{} `json:"config,omitempty"`
}

// MakeBody serializes req for audit logging (raw_request); the live call
// (StreamEvents) passes the built contents/config straight to the SDK.
func (a *Adapter) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	resolvedModel, contents, config, err := buildCall(req, a.modelOrDefault(model))
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(wireBody{Model: resolvedModel, Contents: contents, Config: config})
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	return body, nil
}

type wireCandidate struct {
	Content struct {
		Parts []struct {
			Text         string `json:"text,omitempty"`
			FunctionCall *struct {
				Name string          `json:"name"`
				Args json.RawMessage `json:"args"`
			} `json:"functionCall,omitempty"`
		} `json:"parts"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}

type wireResponse struct {
	Candidates    []wireCandidate `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     *int `json:"promptTokenCount"`
		CandidatesTokenCount *int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func mapFinishReason(raw string) canon.FinishReason {
	switch raw {
	case "STOP":
		return canon.FinishStop
	case "MAX_TOKENS":
		return canon.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return canon.FinishContentFilter
	default:
		return canon.FinishUnknown
	}
}

// ParseResponse converts a non-streaming GenerateContentResponse payload
// into the canonical shape. Exists for interface completeness — this
// adapter's live path always goes through StreamEvents; Gemini batch is not
// wired (see batch.go).
func (a *Adapter) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, router.NewInferenceServer("gemini", "", 0, "", string(raw), err)
	}
	if len(resp.Candidates) == 0 {
		return nil, router.NewInferenceServer("gemini", "", 0, "", string(raw),
			router.NewInvalidMessage("expected at least one candidate"))
	}

	cand := resp.Candidates[0]
	var output []canon.ContentBlockOutput
	seq := 0
	for _, part := range cand.Content.Parts {
		if part.FunctionCall != nil {
			output = append(output, canon.ToolCall{
				ID: generateToolCallID(part.FunctionCall.Name, seq), Name: part.FunctionCall.Name,
				Arguments: string(part.FunctionCall.Args),
			})
			seq++
			continue
		}
		if part.Text != "" {
			output = append(output, canon.Text{Text: part.Text})
		}
	}

	var usage canon.Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = resp.UsageMetadata.PromptTokenCount
		usage.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}

	return &canon.ProviderInferenceResponse{
		Output:       output,
		Usage:        usage,
		FinishReason: mapFinishReason(cand.FinishReason),
		Latency:      latency,
		RawResponse:  string(raw),
	}, nil
}
