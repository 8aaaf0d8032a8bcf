package canon

import "time"

// JSONMode controls how a request's output is coerced into JSON (§4.4).
type JSONMode int

const (
	JSONModeOff JSONMode = iota
	JSONModeOn
	JSONModeStrict
)

// FunctionType distinguishes chat functions from JSON (structured-output)
// functions (§3 Function).
type FunctionType int

const (
	FunctionTypeChat FunctionType = iota
	FunctionTypeJSON
)

// SamplingParams are the optional generation parameters a caller or variant
// may set. Pointers distinguish "unset" from the zero value so request-level
// overrides can win over variant defaults (§4.5.1) without clobbering an
// explicit zero.
type SamplingParams struct {
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	Seed             *int64
	PresencePenalty  *float64
	FrequencyPenalty *float64
	StopSequences    []string
}

// Merge returns a SamplingParams where every field set on override replaces
// the corresponding field in base; fields left nil on override fall back to
// base. This implements the "request wins where set" rule of §4.5.1.
func (base SamplingParams) Merge(override SamplingParams) SamplingParams {
	out := base
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.Seed != nil {
		out.Seed = override.Seed
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.StopSequences != nil {
		out.StopSequences = override.StopSequences
	}
	return out
}

// ModelInferenceRequest is the canonical input to a provider adapter (§3).
type ModelInferenceRequest struct {
	InferenceID  string
	System       string
	Messages     []RequestMessage
	ToolConfig   *ToolConfig
	OutputSchema []byte // JSON schema, present iff FunctionType == FunctionTypeJSON
	JSONMode     JSONMode
	Stream       bool
	Sampling     SamplingParams
	FunctionType FunctionType
}

// EffectiveJSONMode applies the Strict→On degradation invariant from §3:
// "if json_mode = Strict and output_schema is absent, fall back to On."
func (r *ModelInferenceRequest) EffectiveJSONMode() JSONMode {
	if r.JSONMode == JSONModeStrict && len(r.OutputSchema) == 0 {
		return JSONModeOn
	}
	return r.JSONMode
}

// NewModelInferenceRequest constructs a request with a freshly minted
// time-ordered InferenceID.
func NewModelInferenceRequest() *ModelInferenceRequest {
	return &ModelInferenceRequest{InferenceID: NewID()}
}

// Usage reports token counts. Nil fields mean "provider did not report this"
// and must never be silently replaced with 0 (§4.1.2).
type Usage struct {
	InputTokens  *int
	OutputTokens *int
}

// FinishReason is the canonical, total mapping of every provider finish
// reason (§4.1.2, property 3).
type FinishReason int

const (
	FinishStop FinishReason = iota
	FinishLength
	FinishContentFilter
	FinishToolCall
	FinishUnknown
)

// LatencyKind distinguishes blocking from streamed timing information.
type LatencyKind int

const (
	LatencyNonStreaming LatencyKind = iota
	LatencyStreaming
)

// Latency carries either a single response time (non-streaming) or a
// time-to-first-token plus total duration (streaming).
type Latency struct {
	Kind         LatencyKind
	ResponseTime time.Duration // NonStreaming
	TTFT         time.Duration // Streaming
	Total        time.Duration // Streaming
}

// ProviderInferenceResponse is the canonical output of a provider adapter
// (§3), produced identically whether the call was streamed or blocking.
type ProviderInferenceResponse struct {
	Output      []ContentBlockOutput
	Usage       Usage
	FinishReason FinishReason
	Latency     Latency
	RawRequest  string
	RawResponse string
}
