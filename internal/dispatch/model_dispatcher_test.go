package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
	"github.com/vectorcast/gateway/internal/router"
)

type fakeProvider struct {
	name   string
	err    error
	chunks []*canon.CompletionChunk
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	return nil, nil
}
func (f *fakeProvider) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	return nil, nil
}
func (f *fakeProvider) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan *canon.CompletionChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}
func (f *fakeProvider) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	return nil, nil
}
func (f *fakeProvider) PollBatch(ctx context.Context, batchParams []byte) (*providers.PollBatchResult, error) {
	return nil, nil
}

func TestModelDispatcher_Infer_Success(t *testing.T) {
	p := &fakeProvider{name: "fake", chunks: []*canon.CompletionChunk{
		{Text: "hi"}, {Done: true},
	}}
	d := NewModelDispatcher(
		map[string]router.Model{"m": {Name: "m", Providers: []router.ProviderEntry{{ProviderName: "fake"}}}},
		map[string]providers.Provider{"fake": p},
	)

	resp, err := d.Infer(context.Background(), "m", &canon.ModelInferenceRequest{})
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}
	if len(resp.Output) != 1 {
		t.Fatalf("Output = %+v, want 1 block", resp.Output)
	}
}

func TestModelDispatcher_Infer_FallsBackOnFailure(t *testing.T) {
	bad := &fakeProvider{name: "bad", err: router.NewInferenceServer("bad", "m", 500, "", "", errors.New("boom"))}
	good := &fakeProvider{name: "good", chunks: []*canon.CompletionChunk{{Text: "ok"}, {Done: true}}}

	d := NewModelDispatcher(
		map[string]router.Model{"m": {Name: "m", Providers: []router.ProviderEntry{
			{ProviderName: "bad"}, {ProviderName: "good"},
		}}},
		map[string]providers.Provider{"bad": bad, "good": good},
	)

	resp, err := d.Infer(context.Background(), "m", &canon.ModelInferenceRequest{})
	if err != nil {
		t.Fatalf("Infer() error = %v, want nil", err)
	}
	text, ok := resp.Output[0].(canon.Text)
	if !ok || text.Text != "ok" {
		t.Errorf("Output[0] = %+v, want Text{ok} from the fallback provider", resp.Output[0])
	}
}

func TestModelDispatcher_Infer_UnknownModel(t *testing.T) {
	d := NewModelDispatcher(nil, nil)
	if _, err := d.Infer(context.Background(), "missing", &canon.ModelInferenceRequest{}); err == nil {
		t.Error("Infer() error = nil, want an error for an unknown model")
	}
}
