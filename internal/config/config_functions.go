package config

// FunctionsConfig is the declarative surface for the gateway's functions:
// named inference entry points, each resolving to one of several variants.
// This is persisted configuration describing what a function and its
// variants ARE, not the runtime dispatch machinery in internal/dispatch
// (which holds live variant.Variant values this package cannot reflect
// over) — FunctionSpec is the pure-data shape a deployment writes down,
// and VariantSpec is validated against it before being built into a
// live internal/variant.Variant.
type FunctionsConfig struct {
	Functions map[string]FunctionSpec `yaml:"functions"`
}

// FunctionSpec describes one named function: its declared output
// discipline and the variants it can dispatch to.
type FunctionSpec struct {
	Type         string                 `yaml:"type" jsonschema:"enum=chat,enum=json"`
	OutputSchema map[string]interface{} `yaml:"output_schema,omitempty"`
	Variants     map[string]VariantSpec `yaml:"variants"`
}

// VariantSpec is one variant's persistent configuration. Weight is a
// pointer: an omitted weight in YAML is distinct from an explicit zero
// (the former is never sampled and never tried during fallback; the
// latter is pinnable but still never sampled), mirroring
// internal/dispatch.VariantEntry's Weight field.
type VariantSpec struct {
	Type   string   `yaml:"type" jsonschema:"enum=chat_completion,enum=best_of_n,enum=mixture_of_n,enum=chain_of_thought"`
	Weight *float64 `yaml:"weight,omitempty"`

	Model        string `yaml:"model,omitempty"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`

	// Sampling carries the variant's default sampling params, merged
	// with request-supplied overrides at dispatch time.
	Sampling VariantSamplingSpec `yaml:"sampling,omitempty"`

	// Candidates names the sub-variants an evaluation variant
	// (best_of_n, mixture_of_n) draws from. Empty for chat_completion
	// and chain_of_thought.
	Candidates []string `yaml:"candidates,omitempty"`

	// EvaluatorModel names the model used to judge candidates for
	// best_of_n, or to fuse them for mixture_of_n.
	EvaluatorModel string `yaml:"evaluator_model,omitempty"`
}

// VariantSamplingSpec mirrors canon.SamplingParams as plain, reflectable
// config fields (canon.SamplingParams uses *float64/*int for optionality,
// which invopop/jsonschema renders identically, but this copy keeps the
// config surface decoupled from internal/canon's wire shape).
type VariantSamplingSpec struct {
	Temperature *float64 `yaml:"temperature,omitempty"`
	TopP        *float64 `yaml:"top_p,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty"`
	Seed        *int64   `yaml:"seed,omitempty"`
}
