// Package anthropic implements the C2 provider adapter for Anthropic's
// Messages API, grounded on internal/agent/providers/anthropic.go
// (message/tool conversion, SSE reduction, retry classification) and
// internal/agent/toolconv/anthropic.go (tool schema conversion),
// generalized to the canonical types of internal/canon.
package anthropic

import (
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/vectorcast/gateway/internal/providers"
)

var (
	errAnthropicStream = errors.New("anthropic stream error")
	errMalformedStream = errors.New("stream appears malformed: too many consecutive empty events")
)

// Adapter implements providers.Provider for Anthropic.
type Adapter struct {
	providers.BaseAdapter
	client       anthropic.Client
	hasKey       bool
	defaultModel string
}

// New constructs an Anthropic adapter. An empty apiKey is accepted; calls
// against it fail with a clear config error rather than a panic.
func New(apiKey string) *Adapter {
	a := &Adapter{
		BaseAdapter:  providers.NewBaseAdapter("anthropic", 3, time.Second),
		defaultModel: "claude-sonnet-4-20250514",
	}
	if apiKey != "" {
		a.client = anthropic.NewClient(option.WithAPIKey(apiKey))
		a.hasKey = true
	}
	return a
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) modelOrDefault(model string) string {
	if model == "" {
		return a.defaultModel
	}
	return model
}

// isRetryableError is grounded on the teacher's substring classification in
// AnthropicProvider.isRetryableError, trimmed of the ProviderError fast path
// that has no equivalent in this adapter's error taxonomy (classification
// here happens once, at the router.Error construction site in wrapError).
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return true
	}
	return false
}

func maxEmptyStreamEvents() int { return 300 }
