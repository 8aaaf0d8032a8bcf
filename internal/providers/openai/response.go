package openai

import (
	"context"
	"encoding/json"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

type wireResponseMessage struct {
	Content          string         `json:"content"`
	ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
}

type wireChoice struct {
	Message      wireResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   *wireUsage   `json:"usage"`
}

// mapFinishReason is the total mapping required by §4.1.2/property 3.
func mapFinishReason(raw string) canon.FinishReason {
	switch raw {
	case "tool_calls", "function_call":
		return canon.FinishToolCall
	case "length":
		return canon.FinishLength
	case "content_filter":
		return canon.FinishContentFilter
	case "stop":
		return canon.FinishStop
	default:
		return canon.FinishUnknown
	}
}

// ParseResponse implements §4.1.2: exactly one choice must be present;
// usage fields missing/null are preserved as nil, never coerced to 0.
func (a *Adapter) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	var resp wireResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, router.NewInferenceServer("openai", "", 0, "", string(raw), err)
	}
	if len(resp.Choices) != 1 {
		return nil, router.NewInferenceServer("openai", "", 0, "", string(raw),
			router.NewInvalidMessage("expected exactly one choice"))
	}

	choice := resp.Choices[0]
	var output []canon.ContentBlockOutput
	if choice.Message.Content != "" {
		output = append(output, canon.Text{Text: choice.Message.Content})
	}
	if choice.Message.ReasoningContent != "" {
		output = append(output, canon.Thought{Text: choice.Message.ReasoningContent})
	}
	for _, tc := range choice.Message.ToolCalls {
		output = append(output, canon.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}

	var usage canon.Usage
	if resp.Usage != nil {
		usage.InputTokens = resp.Usage.PromptTokens
		usage.OutputTokens = resp.Usage.CompletionTokens
	}

	return &canon.ProviderInferenceResponse{
		Output:       output,
		Usage:        usage,
		FinishReason: mapFinishReason(choice.FinishReason),
		Latency:      latency,
		RawResponse:  string(raw),
	}, nil
}
