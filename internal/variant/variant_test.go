package variant

import (
	"context"
	"errors"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
)

type fakeDispatcher struct {
	resp *canon.ProviderInferenceResponse
	err  error
	got  *canon.ModelInferenceRequest
}

func (f *fakeDispatcher) Infer(ctx context.Context, model string, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeDispatcher) InferStream(ctx context.Context, model string, req *canon.ModelInferenceRequest) (<-chan *canon.CompletionChunk, error) {
	return nil, nil
}

func TestChatCompletion_RendersTemplatesAndMergesSampling(t *testing.T) {
	maxTokens := 100
	cc := NewChatCompletion("v1", "gpt-4o", TemplateSet{
		System:   "You are {{.persona}}.",
		Messages: []MessageTemplate{{Role: canon.RoleUser, Content: "Say {{.word}}"}},
	}, SamplingDefaults{Params: canon.SamplingParams{MaxTokens: &maxTokens}})

	disp := &fakeDispatcher{resp: &canon.ProviderInferenceResponse{}}
	_, err := cc.Infer(context.Background(), disp, map[string]any{"persona": "helpful", "word": "hi"})
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}

	if disp.got.System != "You are helpful." {
		t.Errorf("System = %q, want %q", disp.got.System, "You are helpful.")
	}
	text := disp.got.Messages[0].Content[0].(canon.Text).Text
	if text != "Say hi" {
		t.Errorf("Message content = %q, want %q", text, "Say hi")
	}
	if disp.got.Sampling.MaxTokens == nil || *disp.got.Sampling.MaxTokens != 100 {
		t.Errorf("Sampling.MaxTokens = %v, want 100", disp.got.Sampling.MaxTokens)
	}
}

func TestChatCompletion_RequestSamplingOverridesDefault(t *testing.T) {
	defaultTokens, overrideTokens := 100, 50
	cc := NewChatCompletion("v1", "gpt-4o", TemplateSet{}, SamplingDefaults{Params: canon.SamplingParams{MaxTokens: &defaultTokens}})

	disp := &fakeDispatcher{resp: &canon.ProviderInferenceResponse{}}
	_, err := cc.Infer(context.Background(), disp, map[string]any{
		"__sampling": canon.SamplingParams{MaxTokens: &overrideTokens},
	})
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}
	if *disp.got.Sampling.MaxTokens != 50 {
		t.Errorf("Sampling.MaxTokens = %d, want 50 (request wins)", *disp.got.Sampling.MaxTokens)
	}
}

type constEvaluator struct {
	idx int
	err error
}

func (c constEvaluator) Evaluate(ctx context.Context, candidates []*canon.ProviderInferenceResponse) (int, error) {
	return c.idx, c.err
}

func TestBestOfN_SelectsEvaluatorWinner(t *testing.T) {
	disp := &fakeDispatcher{}
	cands := []Variant{
		&fixedVariant{name: "a", resp: &canon.ProviderInferenceResponse{Output: []canon.ContentBlockOutput{canon.Text{Text: "a"}}}},
		&fixedVariant{name: "b", resp: &canon.ProviderInferenceResponse{Output: []canon.ContentBlockOutput{canon.Text{Text: "b"}}}},
	}
	b := &BestOfN{VariantName: "best", Candidates: cands, Evaluator: constEvaluator{idx: 1}}

	resp, err := b.Infer(context.Background(), disp, nil)
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}
	if resp.Output[0].(canon.Text).Text != "b" {
		t.Errorf("winner = %+v, want candidate b", resp.Output)
	}
}

func TestBestOfN_FallsBackToZeroOnEvaluatorFailure(t *testing.T) {
	disp := &fakeDispatcher{}
	cands := []Variant{
		&fixedVariant{name: "a", resp: &canon.ProviderInferenceResponse{Output: []canon.ContentBlockOutput{canon.Text{Text: "a"}}}},
		&fixedVariant{name: "b", resp: &canon.ProviderInferenceResponse{Output: []canon.ContentBlockOutput{canon.Text{Text: "b"}}}},
	}
	b := &BestOfN{VariantName: "best", Candidates: cands, Evaluator: constEvaluator{err: errors.New("evaluator down")}}

	resp, err := b.Infer(context.Background(), disp, nil)
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}
	if resp.Output[0].(canon.Text).Text != "a" {
		t.Errorf("fallback = %+v, want candidate 0", resp.Output)
	}
}

func TestMixtureOfN_FuserFailureSurfaces(t *testing.T) {
	disp := &fakeDispatcher{}
	cands := []Variant{
		&fixedVariant{name: "a", resp: &canon.ProviderInferenceResponse{}},
	}
	m := &MixtureOfN{VariantName: "mix", Candidates: cands, Fuser: FuserFunc(func(ctx context.Context, c []*canon.ProviderInferenceResponse) (*canon.ProviderInferenceResponse, error) {
		return nil, errors.New("fuser down")
	})}

	if _, err := m.Infer(context.Background(), disp, nil); err == nil {
		t.Error("Infer() error = nil, want fuser failure surfaced")
	}
}

type fixedVariant struct {
	name string
	resp *canon.ProviderInferenceResponse
	err  error
}

func (f *fixedVariant) Name() string { return f.name }
func (f *fixedVariant) Infer(ctx context.Context, dispatcher Dispatcher, args map[string]any) (*canon.ProviderInferenceResponse, error) {
	return f.resp, f.err
}
