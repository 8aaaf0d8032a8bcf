// Package gemini implements the C2 provider adapter for Google's Gemini
// API, grounded on internal/agent/providers/google.go (message/config
// conversion, streaming iterator consumption, retry classification) and
// internal/agent/toolconv/gemini.go (ToGeminiTools/ToGeminiSchema),
// generalized to the canonical types of internal/canon.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vectorcast/gateway/internal/providers"
	"google.golang.org/genai"
)

// Adapter implements providers.Provider for Gemini.
type Adapter struct {
	providers.BaseAdapter
	client       *genai.Client
	defaultModel string
}

// New constructs a Gemini adapter. An empty apiKey produces an adapter
// whose calls fail with a clear config error rather than panicking deep in
// the SDK.
func New(ctx context.Context, apiKey string) (*Adapter, error) {
	a := &Adapter{
		BaseAdapter:  providers.NewBaseAdapter("gemini", 3, time.Second),
		defaultModel: "gemini-2.0-flash",
	}
	if apiKey == "" {
		return a, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	a.client = client
	return a, nil
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) modelOrDefault(model string) string {
	if model == "" {
		return a.defaultModel
	}
	return model
}

// isRetryableError is grounded verbatim on GoogleProvider.isRetryableError.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"), strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"):
		return true
	}
	return false
}

// generateToolCallID mints a synthetic tool-call id: Gemini's API does not
// return one. Grounded on the teacher's generateToolCallID, but keyed by
// the call's position in the stream rather than a wall-clock timestamp, so
// ids stay deterministic for a given response.
func generateToolCallID(name string, seq int) string {
	return fmt.Sprintf("call_%s_%d", name, seq)
}
