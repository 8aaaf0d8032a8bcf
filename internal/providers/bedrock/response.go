package bedrock

import (
	"context"
	"encoding/json"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// wireBody is a JSON-serializable snapshot of the request, used only for
// MakeBody's audit output — the live call builds a ConverseStreamInput
// directly (convert.go's buildConverseInput), since the SDK's document.Document
// fields for tool input/schema are not guaranteed round-trippable through
// encoding/json.
type wireBody struct {
	Model    string            `json:"model"`
	System   string            `json:"system,omitempty"`
	Messages []json.RawMessage `json:"messages"`
	Tools    []canon.FunctionTool `json:"tools,omitempty"`
}

// MakeBody serializes req for audit logging (raw_request) only; see
// wireBody.
func (a *Adapter) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	wb := wireBody{Model: a.modelOrDefault(model), System: req.System}
	for _, m := range req.Messages {
		enc, err := json.Marshal(m)
		if err != nil {
			return nil, router.NewSerialization(err)
		}
		wb.Messages = append(wb.Messages, enc)
	}
	if req.ToolConfig != nil {
		wb.Tools = req.ToolConfig.ToolsAvailable
	}
	body, err := json.Marshal(wb)
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	return body, nil
}

type wireConverseResponse struct {
	Output struct {
		Message struct {
			Content []struct {
				Text    string          `json:"text,omitempty"`
				ToolUse *struct {
					ToolUseID string          `json:"toolUseId"`
					Name      string          `json:"name"`
					Input     json.RawMessage `json:"input"`
				} `json:"toolUse,omitempty"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      *struct {
		InputTokens  *int `json:"inputTokens"`
		OutputTokens *int `json:"outputTokens"`
	} `json:"usage"`
}

func mapFinishReason(raw string) canon.FinishReason {
	switch raw {
	case "end_turn", "stop_sequence", "complete":
		return canon.FinishStop
	case "max_tokens":
		return canon.FinishLength
	case "tool_use":
		return canon.FinishToolCall
	case "content_filtered", "guardrail_intervened":
		return canon.FinishContentFilter
	default:
		return canon.FinishUnknown
	}
}

// ParseResponse converts a non-streaming Converse API response (Bedrock has
// no batch-inference API wired here — see DESIGN.md — so this path exists
// for interface completeness and for any future non-streaming Converse
// caller) into the canonical shape.
func (a *Adapter) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	var resp wireConverseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, router.NewInferenceServer("bedrock", "", 0, "", string(raw), err)
	}

	var output []canon.ContentBlockOutput
	for _, block := range resp.Output.Message.Content {
		if block.ToolUse != nil {
			output = append(output, canon.ToolCall{
				ID: block.ToolUse.ToolUseID, Name: block.ToolUse.Name, Arguments: string(block.ToolUse.Input),
			})
			continue
		}
		if block.Text != "" {
			output = append(output, canon.Text{Text: block.Text})
		}
	}

	var usage canon.Usage
	if resp.Usage != nil {
		usage.InputTokens = resp.Usage.InputTokens
		usage.OutputTokens = resp.Usage.OutputTokens
	}

	return &canon.ProviderInferenceResponse{
		Output:       output,
		Usage:        usage,
		FinishReason: mapFinishReason(resp.StopReason),
		Latency:      latency,
		RawResponse:  string(raw),
	}, nil
}
