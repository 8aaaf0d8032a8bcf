// Package schema implements the JSON/Schema Subsystem (C5): the portable
// Off/On/Strict contract shared by every provider adapter, compiled-schema
// validation of a model's output against a caller-supplied output_schema,
// and implicit-tool (chain-of-thought) synthesis for providers that support
// tools but not schema-constrained text (§4.4).
package schema

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/vectorcast/gateway/internal/canon"
)

// Compiler compiles and caches JSON schemas, grounded on
// pkg/pluginsdk/validation.go's compileSchema + sync.Map cache pattern:
// compiled schemas are cached by the schema's own JSON bytes so repeated
// requests against the same Function don't recompile.
type Compiler struct {
	cache sync.Map // string(schema bytes) -> *jsonschema.Schema
}

// NewCompiler returns a ready-to-use Compiler.
func NewCompiler() *Compiler { return &Compiler{} }

// Compile compiles schemaBytes, returning the cached *jsonschema.Schema if
// this exact schema has been compiled before.
func (c *Compiler) Compile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)
	if cached, ok := c.cache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("output.schema.json", key)
	if err != nil {
		return nil, err
	}
	c.cache.Store(key, compiled)
	return compiled, nil
}

// Validate compiles outputSchema (via the shared cache) and validates
// decoded JSON against it.
func (c *Compiler) Validate(outputSchema []byte, raw string) error {
	compiled, err := c.Compile(outputSchema)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return err
	}
	return compiled.Validate(decoded)
}

// Output is the result of applying JSON mode to a model's raw text output,
// per §4.4's "On" behavior: "Returned text is parsed; parse failure yields
// output.parsed = null with output.raw preserved."
type Output struct {
	Raw    string
	Parsed any // nil if Raw failed to parse as JSON
}

// ParseOutput implements the On-mode text handling rule. It never returns an
// error: a parse failure is represented by Parsed == nil, not by a Go error,
// since a malformed-JSON completion is an expected provider outcome, not a
// gateway fault.
func ParseOutput(raw string) Output {
	var parsed any
	if json.Unmarshal([]byte(raw), &parsed) != nil {
		return Output{Raw: raw, Parsed: nil}
	}
	return Output{Raw: raw, Parsed: parsed}
}

// EffectiveMode resolves the mode a provider call should actually request,
// applying both degradation rules in §4.4/§3:
//   - Strict with no output_schema behaves like On (canon.ModelInferenceRequest.EffectiveJSONMode).
//   - Strict on a model family known not to support schema-constrained
//     decoding (subfamilyUnsupported) also degrades to On.
//
// subfamilyUnsupported is supplied by the caller (adapter-specific — e.g.
// the OpenAI adapter's own `strings.Contains(model, "3.5")` check) so this
// package stays provider-neutral; pass a no-op func if the provider has no
// such restriction.
func EffectiveMode(req *canon.ModelInferenceRequest, model string, subfamilyUnsupported func(model string) bool) canon.JSONMode {
	mode := req.EffectiveJSONMode()
	if mode == canon.JSONModeStrict && subfamilyUnsupported != nil && subfamilyUnsupported(model) {
		return canon.JSONModeOn
	}
	return mode
}
