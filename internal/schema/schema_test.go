package schema

import (
	"strings"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
)

func TestCompiler_CompilesAndCaches(t *testing.T) {
	c := NewCompiler()
	s := []byte(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)

	compiled1, err := c.Compile(s)
	if err != nil {
		t.Fatalf("Compile() = %v, want nil", err)
	}
	compiled2, err := c.Compile(s)
	if err != nil {
		t.Fatalf("Compile() = %v, want nil", err)
	}
	if compiled1 != compiled2 {
		t.Errorf("Compile() returned different instances for the same schema bytes, want cache hit")
	}
}

func TestCompiler_Validate(t *testing.T) {
	c := NewCompiler()
	s := []byte(`{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`)

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "valid", raw: `{"name":"alice"}`, wantErr: false},
		{name: "missing required field", raw: `{}`, wantErr: true},
		{name: "wrong type", raw: `{"name":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(s, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantParsed bool
	}{
		{name: "valid json", raw: `{"a":1}`, wantParsed: true},
		{name: "malformed json", raw: `{"a":`, wantParsed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseOutput(tt.raw)
			if out.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", out.Raw, tt.raw)
			}
			if (out.Parsed != nil) != tt.wantParsed {
				t.Errorf("Parsed = %v, wantParsed %v", out.Parsed, tt.wantParsed)
			}
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	subfamilyUnsupported := func(model string) bool { return strings.Contains(model, "3.5") }

	tests := []struct {
		name  string
		req   *canon.ModelInferenceRequest
		model string
		want  canon.JSONMode
	}{
		{
			name:  "strict with schema on supported model stays strict",
			req:   &canon.ModelInferenceRequest{JSONMode: canon.JSONModeStrict, OutputSchema: []byte(`{}`)},
			model: "gpt-4o",
			want:  canon.JSONModeStrict,
		},
		{
			name:  "strict with no schema degrades to on",
			req:   &canon.ModelInferenceRequest{JSONMode: canon.JSONModeStrict},
			model: "gpt-4o",
			want:  canon.JSONModeOn,
		},
		{
			name:  "strict on unsupported subfamily degrades to on",
			req:   &canon.ModelInferenceRequest{JSONMode: canon.JSONModeStrict, OutputSchema: []byte(`{}`)},
			model: "gpt-3.5-turbo",
			want:  canon.JSONModeOn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveMode(tt.req, tt.model, subfamilyUnsupported)
			if got != tt.want {
				t.Errorf("EffectiveMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
