package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// wireMessage/wireBody mirror the OpenAI Chat Completions wire shape
// directly (rather than reusing go-openai's typed request struct) so every
// §4.1.1 mapping rule — including allowed_tools, which the SDK does not
// model — is under our control and faithfully reproducible for audit
// (raw_request, §3).
type wireMessage struct {
	Role       string            `json:"role"`
	Content    any               `json:"content,omitempty"`
	ToolCalls  []wireToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

type wireContentPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ImageURL   *wireImageURL   `json:"image_url,omitempty"`
	InputAudio *wireInputAudio `json:"input_audio,omitempty"`
	File       *wireFilePart   `json:"file,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireInputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format,omitempty"`
}

type wireFilePart struct {
	FileData string `json:"file_data,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string          `json:"type"`
	Function wireFunctionDef `json:"function"`
}

type wireFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict,omitempty"`
}

type wireAllowedTools struct {
	Mode  string     `json:"mode"`
	Tools []wireTool `json:"tools"`
}

type wireToolChoiceObj struct {
	Type         string            `json:"type"`
	Function     *wireFunctionName `json:"function,omitempty"`
	AllowedTools *wireAllowedTools `json:"allowed_tools,omitempty"`
}

type wireFunctionName struct {
	Name string `json:"name"`
}

type wireBody struct {
	Model             string         `json:"model"`
	Messages          []wireMessage  `json:"messages"`
	Stream            bool           `json:"stream,omitempty"`
	MaxTokens         *int           `json:"max_tokens,omitempty"`
	Temperature       *float64       `json:"temperature,omitempty"`
	TopP              *float64       `json:"top_p,omitempty"`
	Seed              *int64         `json:"seed,omitempty"`
	PresencePenalty   *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64       `json:"frequency_penalty,omitempty"`
	Stop              []string       `json:"stop,omitempty"`
	Tools             []wireTool     `json:"tools,omitempty"`
	ToolChoice        any            `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool          `json:"parallel_tool_calls,omitempty"`
	ResponseFormat    any            `json:"response_format,omitempty"`
}

func mentionsJSONText(s string) bool {
	return strings.Contains(strings.ToLower(s), "json")
}

// MakeBody implements §4.1.1's request-mapping rules for the OpenAI
// Chat Completions binding.
func (a *Adapter) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	var messages []wireMessage
	mentionsJSON := mentionsJSONText(req.System)

	for _, m := range req.Messages {
		msgs, err := convertMessage(m, model)
		if err != nil {
			return nil, router.NewSerialization(err)
		}
		for _, wm := range msgs {
			if s, ok := wm.Content.(string); ok && mentionsJSONText(s) {
				mentionsJSON = true
			}
		}
		messages = append(messages, msgs...)
	}

	effectiveMode := req.EffectiveJSONMode()

	var system *wireMessage
	if req.System != "" {
		system = &wireMessage{Role: "system", Content: req.System}
	}
	if effectiveMode == canon.JSONModeOn || effectiveMode == canon.JSONModeStrict {
		if !mentionsJSON {
			prefix := "Respond using JSON."
			if system == nil {
				system = &wireMessage{Role: "system", Content: prefix}
			} else if s, ok := system.Content.(string); ok {
				system.Content = prefix + "\n\n" + s
			}
		}
	}

	full := make([]wireMessage, 0, len(messages)+1)
	if system != nil {
		full = append(full, *system)
	}
	full = append(full, messages...)

	// §4.1.1: o1-mini rejects a leading system role; rewrite to user.
	if isO1Mini(model) && len(full) > 0 && full[0].Role == "system" {
		full[0].Role = "user"
	}

	body := wireBody{
		Model:    model,
		Messages: full,
		Stream:   req.Stream,
	}
	if req.Sampling.MaxTokens != nil {
		body.MaxTokens = req.Sampling.MaxTokens
	}
	if req.Sampling.Temperature != nil {
		body.Temperature = req.Sampling.Temperature
	}
	if req.Sampling.TopP != nil {
		body.TopP = req.Sampling.TopP
	}
	if req.Sampling.Seed != nil {
		body.Seed = req.Sampling.Seed
	}
	if req.Sampling.PresencePenalty != nil {
		body.PresencePenalty = req.Sampling.PresencePenalty
	}
	if req.Sampling.FrequencyPenalty != nil {
		body.FrequencyPenalty = req.Sampling.FrequencyPenalty
	}
	if len(req.Sampling.StopSequences) > 0 {
		body.Stop = req.Sampling.StopSequences
	}

	applyToolConfig(&body, req.ToolConfig, model)
	applyResponseFormat(&body, req, model)

	return json.Marshal(body)
}

func convertMessage(m canon.RequestMessage, model string) ([]wireMessage, error) {
	switch m.Role {
	case canon.RoleUser:
		return convertUserMessage(m)
	case canon.RoleAssistant:
		return convertAssistantMessage(m, model)
	default:
		return nil, router.NewInvalidMessage("unknown role")
	}
}

func convertUserMessage(m canon.RequestMessage) ([]wireMessage, error) {
	var out []wireMessage
	var textAndFileParts []wireContentPart
	var textOnly string
	hasMultipart := false

	for _, block := range m.Content {
		switch b := block.(type) {
		case canon.Text:
			textOnly += b.Text
			textAndFileParts = append(textAndFileParts, wireContentPart{Type: "text", Text: b.Text})
		case canon.File:
			hasMultipart = true
			part, err := fileContentPart(b)
			if err != nil {
				return nil, err
			}
			textAndFileParts = append(textAndFileParts, part)
		case canon.ToolResult:
			// §4.1.1: User ToolResult ⇒ a standalone role=tool message.
			out = append(out, wireMessage{Role: "tool", Content: b.Result, ToolCallID: b.ID})
		case canon.ToolCall:
			return nil, router.NewInvalidMessage("tool call in user message")
		case canon.Thought:
			// dropped: user messages never originate Thought blocks.
		case canon.Unknown:
			// dropped for the user role; splicing is assistant/provider-scoped.
		}
	}

	if hasMultipart {
		out = append([]wireMessage{{Role: "user", Content: textAndFileParts}}, out...)
	} else if textOnly != "" {
		out = append([]wireMessage{{Role: "user", Content: textOnly}}, out...)
	}
	return out, nil
}

func fileContentPart(f canon.File) (wireContentPart, error) {
	switch {
	case strings.HasPrefix(f.MimeType, "image/"):
		url := f.Payload.URL
		if url == "" {
			url = "data:" + f.MimeType + ";base64," + f.Payload.Base64
		}
		return wireContentPart{Type: "image_url", ImageURL: &wireImageURL{URL: url}}, nil
	case strings.HasPrefix(f.MimeType, "audio/"):
		return wireContentPart{Type: "input_audio", InputAudio: &wireInputAudio{Data: f.Payload.Base64, Format: f.MimeType}}, nil
	default:
		if f.Payload.URL != "" {
			return wireContentPart{Type: "file", File: &wireFilePart{FileURL: f.Payload.URL}}, nil
		}
		return wireContentPart{Type: "file", File: &wireFilePart{FileData: f.Payload.Base64}}, nil
	}
}

func convertAssistantMessage(m canon.RequestMessage, model string) ([]wireMessage, error) {
	wm := wireMessage{Role: "assistant"}
	var text string
	var calls []wireToolCall
	var spliced []json.RawMessage

	for _, block := range m.Content {
		switch b := block.(type) {
		case canon.Text:
			text += b.Text
		case canon.ToolCall:
			calls = append(calls, wireToolCall{
				ID:   b.ID,
				Type: "function",
				Function: wireFunctionCall{
					Name:      b.Name,
					Arguments: b.Arguments,
				},
			})
		case canon.ToolResult:
			return nil, router.NewInvalidMessage("tool result in assistant message")
		case canon.Thought:
			// dropped with a warning if OpenAI did not originate it; OpenAI
			// chat completions never returns a Thought block, so any
			// Thought reaching here always originated elsewhere and is
			// always dropped.
			router.Logger.Warn("dropping thought block not originated by this provider", "provider", "openai")
		case canon.Unknown:
			// OpenAI-originated unknown content is spliced as an additional part below
			if b.ProviderName == "openai" && json.Valid(b.Data) {
				spliced = append(spliced, b.Data)
			}
		}
	}
	if text != "" {
		wm.Content = text
	}
	if len(spliced) > 0 {
		parts := []any{}
		if text != "" {
			parts = append(parts, wireContentPart{Type: "text", Text: text})
		}
		for _, d := range spliced {
			parts = append(parts, d)
		}
		wm.Content = parts
	}
	if len(calls) > 0 {
		wm.ToolCalls = calls
	}
	return []wireMessage{wm}, nil
}

func applyToolConfig(body *wireBody, tc *canon.ToolConfig, model string) {
	if tc == nil {
		return
	}
	for _, t := range tc.ToolsAvailable {
		body.Tools = append(body.Tools, wireTool{
			Type: "function",
			Function: wireFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaToMap(t.Parameters),
				Strict:      t.Strict,
			},
		})
	}

	switch tc.ToolChoice.Kind {
	case canon.ToolChoiceNone:
		// §4.2/§9 open question: None suppresses allowed_tools entirely,
		// even if the caller set a dynamic allowed-tools list.
		body.ToolChoice = "none"
	case canon.ToolChoiceSpecific:
		body.ToolChoice = wireToolChoiceObj{Type: "function", Function: &wireFunctionName{Name: tc.ToolChoice.Name}}
	case canon.ToolChoiceRequired:
		if tc.HasAllowedTools {
			body.ToolChoice = wireToolChoiceObj{Type: "allowed_tools", AllowedTools: &wireAllowedTools{
				Mode: "required", Tools: allowedToolsSubset(body.Tools, tc.AllowedTools),
			}}
		} else {
			body.ToolChoice = "required"
		}
	case canon.ToolChoiceAuto:
		if tc.HasAllowedTools {
			body.ToolChoice = wireToolChoiceObj{Type: "allowed_tools", AllowedTools: &wireAllowedTools{
				Mode: "auto", Tools: allowedToolsSubset(body.Tools, tc.AllowedTools),
			}}
		}
		// else: omit tool_choice, provider default is auto.
	}

	if tc.ParallelToolCalls != nil && !isO1Family(model) {
		body.ParallelToolCalls = tc.ParallelToolCalls
	}
	// §4.1.1: no o1* model accepts parallel_tool_calls; silently suppressed.
}

func allowedToolsSubset(all []wireTool, names []string) []wireTool {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	var out []wireTool
	for _, t := range all {
		if allowed[t.Function.Name] {
			out = append(out, t)
		}
	}
	return out
}

func applyResponseFormat(body *wireBody, req *canon.ModelInferenceRequest, model string) {
	switch req.EffectiveJSONMode() {
	case canon.JSONModeOff:
		return
	case canon.JSONModeOn:
		body.ResponseFormat = map[string]any{"type": "json_object"}
	case canon.JSONModeStrict:
		if len(req.OutputSchema) == 0 || strings.Contains(model, "3.5") {
			// §4.4/§9: degrade transparently to On for model families known
			// not to support schema-constrained decoding.
			body.ResponseFormat = map[string]any{"type": "json_object"}
			return
		}
		body.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "response",
				"strict": true,
				"schema": schemaToMap(req.OutputSchema),
			},
		}
	}
}
