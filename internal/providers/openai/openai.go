// Package openai implements the C2 provider adapter for OpenAI's
// Chat Completions API, grounded on
// internal/agent/providers/openai.go (message/tool conversion, streaming
// tool-call delta accumulation, retry classification) generalized to the
// canonical request/response types of internal/canon and extended per
// spec §4.1.1/§4.1.2/§4.1.3.
package openai

import (
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
)

// Adapter implements providers.Provider for OpenAI.
type Adapter struct {
	providers.BaseAdapter
	client *openai.Client
}

// New constructs an OpenAI adapter. An empty apiKey is accepted (tests and
// credential-less construction paths) and produces an adapter whose calls
// fail with a clear error rather than a nil-pointer panic.
func New(apiKey string) *Adapter {
	a := &Adapter{BaseAdapter: providers.NewBaseAdapter("openai", 3, time.Second)}
	if apiKey != "" {
		a.client = openai.NewClient(apiKey)
	}
	return a
}

func (a *Adapter) Name() string { return "openai" }

// isO1Family reports whether model belongs to the o1 reasoning family,
// which has the two quirks of §4.1.1: o1-mini rejects a system role, and no
// o1 model accepts parallel_tool_calls.
func isO1Family(model string) bool {
	return strings.HasPrefix(model, "o1")
}

func isO1Mini(model string) bool {
	return strings.HasPrefix(model, "o1-mini")
}

// isRetryableError is grounded verbatim on the teacher's substring
// classification in internal/agent/providers/openai.go.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	}
	return false
}

// mentionsJSON reports whether any existing message already mentions
// "json" (case-insensitive), per §4.1.1's prefix-instruction guard.
func mentionsJSON(messages []openai.ChatCompletionMessage) bool {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), "json") {
			return true
		}
		for _, part := range m.MultiContent {
			if strings.Contains(strings.ToLower(part.Text), "json") {
				return true
			}
		}
	}
	return false
}

func schemaToMap(schema []byte) map[string]any {
	if len(schema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var m map[string]any
	if err := json.Unmarshal(schema, &m); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return m
}
