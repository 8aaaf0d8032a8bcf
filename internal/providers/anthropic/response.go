package anthropic

import (
	"context"
	"encoding/json"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// wireUsage mirrors the subset of Anthropic's Usage object this adapter
// reads; fields are pointers so "absent" (old batch lines, zero-usage
// errors) is distinguishable from "reported zero" (§4.1.2).
type wireUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

type wireContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type wireMessage struct {
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

// mapFinishReason is the total mapping required by §4.1.2/property 3 for
// Anthropic's stop_reason values.
func mapFinishReason(raw string) canon.FinishReason {
	switch raw {
	case "end_turn", "stop_sequence":
		return canon.FinishStop
	case "max_tokens":
		return canon.FinishLength
	case "tool_use":
		return canon.FinishToolCall
	default:
		return canon.FinishUnknown
	}
}

// ParseResponse converts a non-streaming Anthropic Message (or a completed
// batch line's result payload, same shape) into the canonical response.
func (a *Adapter) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, router.NewInferenceServer("anthropic", "", 0, "", string(raw), err)
	}

	var output []canon.ContentBlockOutput
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			output = append(output, canon.Text{Text: block.Text})
		case "thinking":
			output = append(output, canon.Thought{Text: block.Text})
		case "tool_use":
			output = append(output, canon.ToolCall{ID: block.ID, Name: block.Name, Arguments: string(block.Input)})
		default:
			output = append(output, canon.Unknown{Data: json.RawMessage(raw), ProviderName: "anthropic"})
		}
	}

	return &canon.ProviderInferenceResponse{
		Output: output,
		Usage: canon.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
		FinishReason: mapFinishReason(msg.StopReason),
		Latency:      latency,
		RawResponse:  string(raw),
	}, nil
}
