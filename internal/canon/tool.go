package canon

// FunctionTool describes one callable tool surfaced to the model.
type FunctionTool struct {
	Name        string
	Description string
	Parameters  []byte // JSON schema
	Strict      bool
}

// ToolChoiceKind selects how a model must use the available tools.
type ToolChoiceKind int

const (
	ToolChoiceNone ToolChoiceKind = iota
	ToolChoiceAuto
	ToolChoiceRequired
	ToolChoiceSpecific
)

// ToolChoice resolves to one of the four kinds; Name is only meaningful when
// Kind is ToolChoiceSpecific.
type ToolChoice struct {
	Kind ToolChoiceKind
	Name string
}

// ToolConfig is the resolved tool state for one inference request: the
// function's configured tools plus request-level overrides (§4.3).
type ToolConfig struct {
	ToolsAvailable     []FunctionTool
	ToolChoice         ToolChoice
	ParallelToolCalls  *bool // nil = unset, use provider default
	AllowedTools       []string
	HasAllowedTools    bool
}
