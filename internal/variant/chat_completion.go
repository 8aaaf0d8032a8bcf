package variant

import (
	"context"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/templates"
)

// TemplateSet holds the system/message templates a ChatCompletion variant
// renders, grounded on internal/templates.VariableEngine (the teacher's
// text/template-based renderer), reused here for prompt rendering instead
// of a new templating layer.
type TemplateSet struct {
	System   string // optional
	Messages []MessageTemplate
}

// MessageTemplate is one templated turn; Content is rendered per §4.5.1's
// "renders templates (system / message contents) using provided arguments".
type MessageTemplate struct {
	Role    canon.Role
	Content string
}

// ChatCompletion is the base variant kind (§4.5.1): it renders templates,
// merges sampling defaults with the request's own params (request wins
// where set), and dispatches through the Model Router.
type ChatCompletion struct {
	VariantName string
	Model       string
	Templates   TemplateSet
	Sampling    SamplingDefaults
	ToolConfig  *canon.ToolConfig
	JSONMode    canon.JSONMode
	OutputSchema []byte

	engine *templates.VariableEngine
}

// NewChatCompletion constructs a ChatCompletion variant with a fresh
// template engine.
func NewChatCompletion(name, model string, tmpl TemplateSet, sampling SamplingDefaults) *ChatCompletion {
	return &ChatCompletion{
		VariantName: name,
		Model:       model,
		Templates:   tmpl,
		Sampling:    sampling,
		engine:      templates.NewVariableEngine(),
	}
}

func (c *ChatCompletion) Name() string { return c.VariantName }

// Render produces the canonical messages for this variant's templates,
// filled in with args.
func (c *ChatCompletion) Render(args map[string]any) (system string, messages []canon.RequestMessage, err error) {
	if c.Templates.System != "" {
		system, err = c.engine.Process(c.Templates.System, args)
		if err != nil {
			return "", nil, err
		}
	}

	messages = make([]canon.RequestMessage, 0, len(c.Templates.Messages))
	for _, mt := range c.Templates.Messages {
		rendered, err := c.engine.Process(mt.Content, args)
		if err != nil {
			return "", nil, err
		}
		messages = append(messages, canon.RequestMessage{
			Role:    mt.Role,
			Content: []canon.ContentBlock{canon.Text{Text: rendered}},
		})
	}
	return system, messages, nil
}

// Infer renders this variant's templates and dispatches through
// dispatcher, merging sampling defaults with the request's own sampling
// overrides (override carried via args["__sampling"], the one caller-facing
// knob BestOfN/MixtureOfN thread through — chat functions called directly
// pass an empty override).
func (c *ChatCompletion) Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	system, messages, err := c.Render(args)
	if err != nil {
		return nil, err
	}

	override, _ := args["__sampling"].(canon.SamplingParams)

	req := canon.NewModelInferenceRequest()
	req.System = system
	req.Messages = messages
	req.ToolConfig = c.ToolConfig
	req.JSONMode = c.JSONMode
	req.OutputSchema = c.OutputSchema
	req.Sampling = MergeSampling(c.Sampling, override)

	return dispatcher.Infer(ctx, c.Model, req)
}
