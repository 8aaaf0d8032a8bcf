package toolstate

import (
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

var (
	errParallelNotPermitted = router.NewInvalidMessage("parallel tool calls are not permitted for this request")
	errDanglingToolResult   = router.NewInvalidMessage("tool result references a call id with no matching prior assistant tool call")
)

// ResolveConfig merges a Function's configured tools with a request's
// additional_tools and per-request overrides, per §4.3's static view:
// "Function's configured tools + per-request additional_tools form
// tools_available. tool_choice and parallel_tool_calls may be overridden
// per request."
func ResolveConfig(functionTools []canon.FunctionTool, additionalTools []canon.FunctionTool, overrideChoice *canon.ToolChoice, overrideParallel *bool, allowedTools []string) *canon.ToolConfig {
	available := make([]canon.FunctionTool, 0, len(functionTools)+len(additionalTools))
	available = append(available, functionTools...)
	available = append(available, additionalTools...)

	cfg := &canon.ToolConfig{
		ToolsAvailable: available,
		ToolChoice:     canon.ToolChoice{Kind: canon.ToolChoiceAuto},
	}
	if overrideChoice != nil {
		cfg.ToolChoice = *overrideChoice
	}
	if overrideParallel != nil {
		cfg.ParallelToolCalls = overrideParallel
	}
	if allowedTools != nil {
		cfg.AllowedTools = allowedTools
		cfg.HasAllowedTools = true
	}
	return cfg
}

// ValidateTurn checks one assistant turn's tool calls against the prior
// conversation, per §4.3's multi-turn validation rule: a user ToolResult
// without a matching prior assistant ToolCall of identical id is an
// InvalidMessage error, and parallel calls (more than one ToolCall in a
// single assistant turn) require parallel_tool_calls = true or provider
// acceptance.
func ValidateTurn(calls []canon.ToolCall, cfg *canon.ToolConfig, providerAcceptsParallel bool) error {
	if len(calls) <= 1 {
		return nil
	}
	allowed := providerAcceptsParallel
	if cfg != nil && cfg.ParallelToolCalls != nil {
		allowed = *cfg.ParallelToolCalls
	}
	if !allowed {
		return errParallelNotPermitted
	}
	return nil
}

// ValidateToolResults confirms every ToolResult in messages references an id
// that appeared in a prior assistant ToolCall.
func ValidateToolResults(messages []canon.RequestMessage) error {
	known := make(map[string]bool)
	for _, msg := range messages {
		for _, block := range msg.Content {
			switch b := block.(type) {
			case canon.ToolCall:
				if msg.Role == canon.RoleAssistant {
					known[b.ID] = true
				}
			case canon.ToolResult:
				if !known[b.ID] {
					return errDanglingToolResult
				}
			}
		}
	}
	return nil
}
