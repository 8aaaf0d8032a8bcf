package schema

import "github.com/vectorcast/gateway/internal/canon"

// ImplicitToolName is the synthetic tool name chain-of-thought JSON
// functions use to coerce structured output from a provider that supports
// tools but not schema-constrained text (§4.4).
const ImplicitToolName = "respond"

// ApplyImplicitTool rewrites req in place so the provider is asked to call
// a synthetic "respond" tool whose parameters are the output schema, per
// §4.4: "the system generates a synthetic tool named respond whose
// parameters are the output schema, sets tool_choice = Specific(respond)".
// Any tools already configured on req are preserved alongside it; the
// caller resolves them via internal/toolstate before this runs.
func ApplyImplicitTool(req *canon.ModelInferenceRequest) {
	implicit := canon.FunctionTool{
		Name:       ImplicitToolName,
		Parameters: req.OutputSchema,
		Strict:     true,
	}

	cfg := req.ToolConfig
	if cfg == nil {
		cfg = &canon.ToolConfig{}
	}
	cfg.ToolsAvailable = append(cfg.ToolsAvailable, implicit)
	cfg.ToolChoice = canon.ToolChoice{Kind: canon.ToolChoiceSpecific, Name: ImplicitToolName}
	req.ToolConfig = cfg
}

// ExtractImplicitOutput maps a response produced under ApplyImplicitTool
// back to canonical JSON output: the respond call's arguments become the
// parsed JSON, and any text content alongside it is captured as a Thought
// (auxiliary content), per §4.4's last sentence.
func ExtractImplicitOutput(output []canon.ContentBlockOutput) (Output, []canon.Thought) {
	var result Output
	var thoughts []canon.Thought
	found := false

	for _, block := range output {
		switch b := block.(type) {
		case canon.ToolCall:
			if b.Name == ImplicitToolName && !found {
				result = ParseOutput(b.Arguments)
				found = true
			}
		case canon.Text:
			if b.Text != "" {
				thoughts = append(thoughts, canon.Thought{Text: b.Text})
			}
		case canon.Thought:
			thoughts = append(thoughts, b)
		}
	}

	return result, thoughts
}
