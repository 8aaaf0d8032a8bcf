package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// buildParams converts a canonical request into the SDK's typed parameters,
// grounded on AnthropicProvider.createStream: system prompt is carried
// separately from Messages, tool results/tool calls round-trip as content
// blocks, and (per the teacher, whose non-beta path never replays Thought
// content back into a request) Thought blocks in message history are not
// re-sent — only Anthropic's own signed-thinking replay path would need
// that, and this adapter does not implement extended thinking.
func (a *Adapter) buildParams(req *canon.ModelInferenceRequest, model string) (anthropic.MessageNewParams, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, router.NewInvalidMessage(err.Error())
	}

	maxTokens := int64(4096)
	if req.Sampling.MaxTokens != nil && *req.Sampling.MaxTokens > 0 {
		maxTokens = int64(*req.Sampling.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if req.Sampling.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Sampling.Temperature)
	}
	if req.Sampling.TopP != nil {
		params.TopP = anthropic.Float(*req.Sampling.TopP)
	}
	if len(req.Sampling.StopSequences) > 0 {
		params.StopSequences = req.Sampling.StopSequences
	}

	if req.ToolConfig != nil && len(req.ToolConfig.ToolsAvailable) > 0 {
		tools, err := convertTools(req.ToolConfig.ToolsAvailable)
		if err != nil {
			return anthropic.MessageNewParams{}, router.NewInvalidRequest(err.Error())
		}
		params.Tools = tools
		applyToolChoice(&params, req.ToolConfig)
	}

	return params, nil
}

func convertMessages(messages []canon.RequestMessage) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		var content []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch b := block.(type) {
			case canon.Text:
				if b.Text != "" {
					content = append(content, anthropic.NewTextBlock(b.Text))
				}
			case canon.ToolResult:
				content = append(content, anthropic.NewToolResultBlock(b.ID, b.Result, false))
			case canon.ToolCall:
				var input map[string]interface{}
				if b.Arguments != "" {
					if err := json.Unmarshal([]byte(b.Arguments), &input); err != nil {
						return nil, fmt.Errorf("invalid tool call arguments for %s: %w", b.Name, err)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(b.ID, input, b.Name))
			case canon.File:
				if b.Payload.Base64 != "" {
					content = append(content, anthropic.NewImageBlockBase64(b.MimeType, b.Payload.Base64))
				}
			case canon.Unknown:
				// Opaque passthrough is not modeled by the SDK's typed content
				// blocks; drop it rather than guess at a wire shape (§9).
			}
		}

		var message anthropic.MessageParam
		if msg.Role == canon.RoleAssistant {
			message = anthropic.NewAssistantMessage(content...)
		} else {
			message = anthropic.NewUserMessage(content...)
		}
		result = append(result, message)
	}
	return result, nil
}

func convertTools(tools []canon.FunctionTool) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s: missing tool definition", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

// applyToolChoice maps the canonical tool_choice resolution (§4.3) onto
// Anthropic's auto/any/tool/none tool_choice object. Anthropic has no
// allowed_tools-style dynamic subset, so ToolConfig.AllowedTools narrows
// params.Tools itself rather than the tool_choice payload.
func applyToolChoice(params *anthropic.MessageNewParams, tc *canon.ToolConfig) {
	if tc.HasAllowedTools {
		params.Tools = subsetTools(params.Tools, tc.AllowedTools)
	}

	disableParallel := tc.ParallelToolCalls != nil && !*tc.ParallelToolCalls

	switch tc.ToolChoice.Kind {
	case canon.ToolChoiceNone:
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	case canon.ToolChoiceSpecific:
		t := &anthropic.ToolChoiceToolParam{Name: tc.ToolChoice.Name}
		if disableParallel {
			t.DisableParallelToolUse = anthropic.Bool(true)
		}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfTool: t}
	case canon.ToolChoiceRequired:
		t := &anthropic.ToolChoiceAnyParam{}
		if disableParallel {
			t.DisableParallelToolUse = anthropic.Bool(true)
		}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: t}
	case canon.ToolChoiceAuto:
		if disableParallel {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{
				DisableParallelToolUse: anthropic.Bool(true),
			}}
		}
	}
}

func subsetTools(tools []anthropic.ToolUnionParam, allowed []string) []anthropic.ToolUnionParam {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	out := tools[:0:0]
	for _, t := range tools {
		if t.OfTool != nil {
			if _, ok := set[t.OfTool.Name]; !ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// MakeBody serializes req into Anthropic's wire format for model, for audit
// logging (raw_request) and batch-line construction (§4.9). The adapter's
// live calls (StreamEvents) build anthropic.MessageNewParams directly rather
// than round-tripping through this JSON form, since the SDK's param types
// are designed for outbound construction, not parsing.
func (a *Adapter) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	params, err := a.buildParams(req, a.modelOrDefault(model))
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	return body, nil
}
