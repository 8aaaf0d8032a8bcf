package bedrock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// buildConverseInput converts a canonical request into a ConverseStreamInput,
// grounded on BedrockProvider.Complete + convertMessages. System prompt,
// tool config, and inference config follow the same mapping as the teacher;
// File content blocks carry already-fetched bytes (canon has no
// fetch-by-URL step — §9 leaves attachment resolution to the caller).
func buildConverseInput(req *canon.ModelInferenceRequest, model string) (*bedrockruntime.ConverseStreamInput, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return nil, router.NewInvalidMessage(err.Error())
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}

	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}

	if req.Sampling.MaxTokens != nil && *req.Sampling.MaxTokens > 0 {
		maxTokens := *req.Sampling.MaxTokens
		if maxTokens > 1<<31-1 {
			maxTokens = 1<<31 - 1
		}
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(maxTokens))}
	}
	if req.Sampling.Temperature != nil {
		if input.InferenceConfig == nil {
			input.InferenceConfig = &types.InferenceConfiguration{}
		}
		t := float32(*req.Sampling.Temperature)
		input.InferenceConfig.Temperature = aws.Float32(t)
	}
	if len(req.Sampling.StopSequences) > 0 {
		if input.InferenceConfig == nil {
			input.InferenceConfig = &types.InferenceConfiguration{}
		}
		input.InferenceConfig.StopSequences = req.Sampling.StopSequences
	}

	if req.ToolConfig != nil && len(req.ToolConfig.ToolsAvailable) > 0 {
		toolConfig, err := convertToolConfig(req.ToolConfig)
		if err != nil {
			return nil, router.NewInvalidRequest(err.Error())
		}
		input.ToolConfig = toolConfig
	}

	return input, nil
}

func convertMessages(messages []canon.RequestMessage) ([]types.Message, error) {
	result := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		var content []types.ContentBlock
		for _, block := range msg.Content {
			switch b := block.(type) {
			case canon.Text:
				if b.Text != "" {
					content = append(content, &types.ContentBlockMemberText{Value: b.Text})
				}
			case canon.ToolResult:
				content = append(content, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(b.ID),
						Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: b.Result}},
					},
				})
			case canon.ToolCall:
				var inputDoc any
				if b.Arguments != "" {
					if err := json.Unmarshal([]byte(b.Arguments), &inputDoc); err != nil {
						return nil, fmt.Errorf("invalid tool call arguments for %s: %w", b.Name, err)
					}
				} else {
					inputDoc = map[string]any{}
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(b.ID),
						Name:      aws.String(b.Name),
						Input:     document.NewLazyDocument(inputDoc),
					},
				})
			case canon.File:
				format, ok := imageFormat(b.MimeType)
				if !ok || b.Payload.Base64 == "" {
					continue
				}
				data, err := decodeBase64(b.Payload.Base64)
				if err != nil {
					continue
				}
				content = append(content, &types.ContentBlockMemberImage{
					Value: types.ImageBlock{Format: format, Source: &types.ImageSourceMemberBytes{Value: data}},
				})
			case canon.Unknown:
				// no typed Bedrock equivalent; dropped (§9).
			}
		}
		if len(content) == 0 {
			continue
		}
		role := types.ConversationRoleUser
		if msg.Role == canon.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}
	return result, nil
}

func imageFormat(mimeType string) (types.ImageFormat, bool) {
	switch mimeType {
	case "image/png":
		return types.ImageFormatPng, true
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, true
	case "image/gif":
		return types.ImageFormatGif, true
	case "image/webp":
		return types.ImageFormatWebp, true
	default:
		return "", false
	}
}

// convertToolConfig maps the resolved ToolConfig onto Bedrock's ToolConfig,
// including the subset of tool_choice Bedrock's Converse API models
// (auto/any/tool — there is no "none": callers wanting no tool use simply
// omit ToolConfig, matching toolconv.ToBedrockTools' behavior in the
// teacher).
func convertToolConfig(tc *canon.ToolConfig) (*types.ToolConfiguration, error) {
	tools := tc.ToolsAvailable
	if tc.HasAllowedTools {
		tools = filterTools(tools, tc.AllowedTools)
	}

	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		schema := schemaToMap(t.Parameters)
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}

	config := &types.ToolConfiguration{Tools: specs}
	switch tc.ToolChoice.Kind {
	case canon.ToolChoiceSpecific:
		config.ToolChoice = &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{Name: aws.String(tc.ToolChoice.Name)}}
	case canon.ToolChoiceRequired:
		config.ToolChoice = &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}}
	case canon.ToolChoiceAuto:
		config.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
	}
	return config, nil
}

func filterTools(tools []canon.FunctionTool, allowed []string) []canon.FunctionTool {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	out := tools[:0:0]
	for _, t := range tools {
		if _, ok := set[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func schemaToMap(schema []byte) map[string]any {
	if len(schema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var m map[string]any
	if err := json.Unmarshal(schema, &m); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return m
}
