package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
	"github.com/vectorcast/gateway/internal/toolconv"
	"google.golang.org/genai"
)

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// buildCall converts a canonical request into the (model, contents, config)
// triple genai.Models.GenerateContentStream expects, grounded on
// GoogleProvider.convertMessages/buildConfig.
func buildCall(req *canon.ModelInferenceRequest, model string) (string, []*genai.Content, *genai.GenerateContentConfig, error) {
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return "", nil, nil, router.NewInvalidMessage(err.Error())
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Sampling.MaxTokens != nil && *req.Sampling.MaxTokens > 0 {
		maxTokens := *req.Sampling.MaxTokens
		if maxTokens > 1<<31-1 {
			maxTokens = 1<<31 - 1
		}
		config.MaxOutputTokens = int32(maxTokens)
	}
	if req.Sampling.Temperature != nil {
		t := float32(*req.Sampling.Temperature)
		config.Temperature = &t
	}
	if req.Sampling.TopP != nil {
		p := float32(*req.Sampling.TopP)
		config.TopP = &p
	}
	if len(req.Sampling.StopSequences) > 0 {
		config.StopSequences = req.Sampling.StopSequences
	}

	if req.ToolConfig != nil && len(req.ToolConfig.ToolsAvailable) > 0 {
		config.Tools = convertTools(req.ToolConfig.ToolsAvailable)
		config.ToolConfig = buildToolConfig(req.ToolConfig)
	}

	return model, contents, config, nil
}

func convertMessages(messages []canon.RequestMessage) ([]*genai.Content, error) {
	var result []*genai.Content
	for _, msg := range messages {
		content := &genai.Content{Role: genai.RoleUser}
		if msg.Role == canon.RoleAssistant {
			content.Role = genai.RoleModel
		}

		for _, block := range msg.Content {
			switch b := block.(type) {
			case canon.Text:
				if b.Text != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
				}
			case canon.ToolCall:
				var args map[string]any
				if b.Arguments != "" {
					if err := json.Unmarshal([]byte(b.Arguments), &args); err != nil {
						return nil, fmt.Errorf("invalid tool call arguments for %s: %w", b.Name, err)
					}
				} else {
					args = map[string]any{}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: b.Name, Args: args},
				})
			case canon.ToolResult:
				var response map[string]any
				if err := json.Unmarshal([]byte(b.Result), &response); err != nil {
					response = map[string]any{"result": b.Result}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{Name: b.Name, Response: response},
				})
			case canon.File:
				if b.Payload.Base64 != "" {
					data, err := decodeBase64(b.Payload.Base64)
					if err == nil {
						content.Parts = append(content.Parts, &genai.Part{
							InlineData: &genai.Blob{Data: data, MIMEType: b.MimeType},
						})
					}
				} else if b.Payload.URL != "" {
					content.Parts = append(content.Parts, &genai.Part{
						FileData: &genai.FileData{FileURI: b.Payload.URL, MIMEType: b.MimeType},
					})
				}
			case canon.Unknown:
				// no typed Gemini equivalent; dropped (§9).
			}
		}

		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result, nil
}

func convertTools(tools []canon.FunctionTool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Parameters, &schemaMap); err != nil {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toolconv.ToGeminiSchema(schemaMap),
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// buildToolConfig maps the resolved ToolConfig onto Gemini's
// FunctionCallingConfig (§4.3): None/Auto/Required/Specific map to
// NONE/AUTO/ANY/ANY+AllowedFunctionNames respectively. AllowedTools (when
// set) fills AllowedFunctionNames only for the modes other than Specific;
// with Specific, the single named tool is the only allowed name.
func buildToolConfig(tc *canon.ToolConfig) *genai.ToolConfig {
	fc := &genai.FunctionCallingConfig{}
	switch tc.ToolChoice.Kind {
	case canon.ToolChoiceNone:
		fc.Mode = genai.FunctionCallingConfigModeNone
	case canon.ToolChoiceRequired:
		fc.Mode = genai.FunctionCallingConfigModeAny
	case canon.ToolChoiceSpecific:
		fc.Mode = genai.FunctionCallingConfigModeAny
		fc.AllowedFunctionNames = []string{tc.ToolChoice.Name}
	default:
		fc.Mode = genai.FunctionCallingConfigModeAuto
	}
	if tc.HasAllowedTools && len(fc.AllowedFunctionNames) == 0 {
		fc.AllowedFunctionNames = tc.AllowedTools
	}
	return &genai.ToolConfig{FunctionCallingConfig: fc}
}
