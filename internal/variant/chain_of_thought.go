package variant

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/schema"
)

// ChainOfThought is the same as ChatCompletion plus the implicit-tool
// wrapper for JSON output (§3 variant kinds, §4.4's implicit-tool
// paragraph): it asks the model to call a synthetic "respond" tool whose
// parameters are the output schema, then unwraps that call's arguments back
// into canonical JSON output with any surrounding text captured as a
// Thought.
type ChainOfThought struct {
	*ChatCompletion
}

// NewChainOfThought wraps an already-configured ChatCompletion base.
func NewChainOfThought(base *ChatCompletion) *ChainOfThought {
	return &ChainOfThought{ChatCompletion: base}
}

func (c *ChainOfThought) Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	system, messages, err := c.Render(args)
	if err != nil {
		return nil, err
	}

	override, _ := args["__sampling"].(canon.SamplingParams)

	req := canon.NewModelInferenceRequest()
	req.System = system
	req.Messages = messages
	req.ToolConfig = c.ToolConfig
	req.OutputSchema = c.OutputSchema
	req.Sampling = MergeSampling(c.Sampling, override)
	schema.ApplyImplicitTool(req)

	resp, err := dispatcher.Infer(ctx, c.Model, req)
	if err != nil {
		return nil, err
	}

	parsed, thoughts := schema.ExtractImplicitOutput(resp.Output)

	var rewritten []canon.ContentBlockOutput
	for _, th := range thoughts {
		rewritten = append(rewritten, th)
	}
	rewritten = append(rewritten, canon.Text{Text: parsed.Raw})
	resp.Output = rewritten

	return resp, nil
}
