package toolstate

import (
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
)

func TestResolveConfig_MergesFunctionAndAdditionalTools(t *testing.T) {
	fnTools := []canon.FunctionTool{{Name: "a"}}
	additional := []canon.FunctionTool{{Name: "b"}}

	cfg := ResolveConfig(fnTools, additional, nil, nil, nil)

	if len(cfg.ToolsAvailable) != 2 {
		t.Fatalf("ToolsAvailable = %+v, want 2 entries", cfg.ToolsAvailable)
	}
	if cfg.ToolChoice.Kind != canon.ToolChoiceAuto {
		t.Errorf("ToolChoice.Kind = %v, want Auto default", cfg.ToolChoice.Kind)
	}
}

func TestResolveConfig_OverridesWin(t *testing.T) {
	choice := &canon.ToolChoice{Kind: canon.ToolChoiceSpecific, Name: "b"}
	parallel := true

	cfg := ResolveConfig(nil, nil, choice, &parallel, []string{"b"})

	if cfg.ToolChoice.Kind != canon.ToolChoiceSpecific || cfg.ToolChoice.Name != "b" {
		t.Errorf("ToolChoice = %+v, want Specific(b)", cfg.ToolChoice)
	}
	if cfg.ParallelToolCalls == nil || !*cfg.ParallelToolCalls {
		t.Errorf("ParallelToolCalls = %v, want true", cfg.ParallelToolCalls)
	}
	if !cfg.HasAllowedTools || len(cfg.AllowedTools) != 1 {
		t.Errorf("AllowedTools = %+v, want [b]", cfg.AllowedTools)
	}
}

func TestValidateTurn(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name           string
		calls          []canon.ToolCall
		cfg            *canon.ToolConfig
		providerAllows bool
		wantErr        bool
	}{
		{name: "single call always allowed", calls: []canon.ToolCall{{ID: "1"}}, wantErr: false},
		{name: "parallel with explicit true", calls: []canon.ToolCall{{ID: "1"}, {ID: "2"}}, cfg: &canon.ToolConfig{ParallelToolCalls: &yes}, wantErr: false},
		{name: "parallel with explicit false", calls: []canon.ToolCall{{ID: "1"}, {ID: "2"}}, cfg: &canon.ToolConfig{ParallelToolCalls: &no}, wantErr: true},
		{name: "parallel with provider acceptance, no override", calls: []canon.ToolCall{{ID: "1"}, {ID: "2"}}, providerAllows: true, wantErr: false},
		{name: "parallel with neither", calls: []canon.ToolCall{{ID: "1"}, {ID: "2"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.calls, tt.cfg, tt.providerAllows)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTurn() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateToolResults(t *testing.T) {
	tests := []struct {
		name     string
		messages []canon.RequestMessage
		wantErr  bool
	}{
		{
			name: "matching result",
			messages: []canon.RequestMessage{
				{Role: canon.RoleAssistant, Content: []canon.ContentBlock{canon.ToolCall{ID: "call_1", Name: "a"}}},
				{Role: canon.RoleUser, Content: []canon.ContentBlock{canon.ToolResult{ID: "call_1", Name: "a"}}},
			},
			wantErr: false,
		},
		{
			name: "dangling result",
			messages: []canon.RequestMessage{
				{Role: canon.RoleUser, Content: []canon.ContentBlock{canon.ToolResult{ID: "call_1", Name: "a"}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateToolResults(tt.messages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateToolResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
