package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/providers"
)

type memStore struct {
	rows map[string]*Request
}

func newMemStore() *memStore { return &memStore{rows: map[string]*Request{}} }

func (m *memStore) Save(req *Request) error {
	m.rows[req.BatchID] = req
	return nil
}

func (m *memStore) Load(batchID string) (*Request, error) {
	req, ok := m.rows[batchID]
	if !ok {
		return nil, errors.New("not found")
	}
	return req, nil
}

type fakeBatchProvider struct {
	name        string
	startResult *providers.StartBatchResult
	startErr    error
	pollResult  *providers.PollBatchResult
	pollErr     error
}

func (f *fakeBatchProvider) Name() string { return f.name }
func (f *fakeBatchProvider) MakeBody(ctx context.Context, req *canon.ModelInferenceRequest, model string) ([]byte, error) {
	return nil, nil
}
func (f *fakeBatchProvider) ParseResponse(ctx context.Context, raw []byte, latency canon.Latency, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	return nil, nil
}
func (f *fakeBatchProvider) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	return nil, nil
}
func (f *fakeBatchProvider) StartBatch(ctx context.Context, reqs []*canon.ModelInferenceRequest, model string) (*providers.StartBatchResult, error) {
	return f.startResult, f.startErr
}
func (f *fakeBatchProvider) PollBatch(ctx context.Context, batchParams []byte) (*providers.PollBatchResult, error) {
	return f.pollResult, f.pollErr
}

func TestOrchestrator_SubmitPersistsPendingRequest(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	provider := &fakeBatchProvider{
		name: "openai",
		startResult: &providers.StartBatchResult{
			BatchParams: []byte(`{"batch_id":"batch-123"}`),
			RawRequest:  "req",
			RawResponse: "resp",
		},
	}
	reqs := []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest(), canon.NewModelInferenceRequest()}

	req, err := o.Submit(context.Background(), provider, "gpt-4o", "greet", "v1", reqs)
	if err != nil {
		t.Fatalf("Submit() error = %v, want nil", err)
	}
	if req.Status != StatusPending {
		t.Errorf("Status = %v, want Pending", req.Status)
	}
	if req.BatchID != "batch-123" {
		t.Errorf("BatchID = %q, want batch-123", req.BatchID)
	}
	if len(req.InferenceIDs) != 2 {
		t.Errorf("len(InferenceIDs) = %d, want 2", len(req.InferenceIDs))
	}
	if _, err := store.Load("batch-123"); err != nil {
		t.Errorf("expected batch persisted, Load() error = %v", err)
	}
}

func TestOrchestrator_SubmitSurfacesProviderRefusal(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	provider := &fakeBatchProvider{name: "gemini", startErr: errors.New("batch inference is not supported")}

	_, err := o.Submit(context.Background(), provider, "gemini-pro", "greet", "v1", []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest()})
	if err == nil {
		t.Fatal("Submit() error = nil, want provider refusal surfaced")
	}
}

func TestOrchestrator_PollTransitionsToCompleted(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	startProvider := &fakeBatchProvider{
		name:        "openai",
		startResult: &providers.StartBatchResult{BatchParams: []byte(`{"batch_id":"batch-1"}`)},
	}
	reqs := []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest()}
	submitted, err := o.Submit(context.Background(), startProvider, "gpt-4o", "greet", "v1", reqs)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	pollProvider := &fakeBatchProvider{
		name: "openai",
		pollResult: &providers.PollBatchResult{
			Status:  providers.BatchCompleted,
			Outputs: map[string]canon.ProviderInferenceResponse{reqs[0].InferenceID: {}},
			Errors:  map[string]string{},
		},
	}
	polled, err := o.Poll(context.Background(), pollProvider, submitted.BatchID)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if polled.Status != StatusCompleted {
		t.Errorf("Status = %v, want Completed", polled.Status)
	}
}

func TestOrchestrator_PollCompletedDespitePerLineErrors(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	startProvider := &fakeBatchProvider{
		name:        "openai",
		startResult: &providers.StartBatchResult{BatchParams: []byte(`{"batch_id":"batch-2"}`)},
	}
	reqs := []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest(), canon.NewModelInferenceRequest()}
	submitted, _ := o.Submit(context.Background(), startProvider, "gpt-4o", "greet", "v1", reqs)

	pollProvider := &fakeBatchProvider{
		name: "openai",
		pollResult: &providers.PollBatchResult{
			Status:  providers.BatchCompleted,
			Outputs: map[string]canon.ProviderInferenceResponse{reqs[0].InferenceID: {}},
			Errors:  map[string]string{reqs[1].InferenceID: "malformed output"},
		},
	}
	polled, err := o.Poll(context.Background(), pollProvider, submitted.BatchID)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if polled.Status != StatusCompleted {
		t.Errorf("Status = %v, want Completed even with a per-line error", polled.Status)
	}
	if polled.Errors[reqs[1].InferenceID] != "malformed output" {
		t.Errorf("Errors[%s] missing", reqs[1].InferenceID)
	}
}

func TestOrchestrator_PollIsIdempotentOnceTerminal(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	startProvider := &fakeBatchProvider{
		name:        "openai",
		startResult: &providers.StartBatchResult{BatchParams: []byte(`{"batch_id":"batch-3"}`)},
	}
	reqs := []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest()}
	submitted, _ := o.Submit(context.Background(), startProvider, "gpt-4o", "greet", "v1", reqs)

	pollProvider := &fakeBatchProvider{
		name:       "openai",
		pollResult: &providers.PollBatchResult{Status: providers.BatchCompleted, Outputs: map[string]canon.ProviderInferenceResponse{}},
	}
	if _, err := o.Poll(context.Background(), pollProvider, submitted.BatchID); err != nil {
		t.Fatalf("first Poll() error = %v", err)
	}

	// Second poll should not even touch the provider; give it a failing
	// PollBatch to prove the terminal row short-circuits.
	brokenProvider := &fakeBatchProvider{name: "openai", pollErr: errors.New("should not be called")}
	final, err := o.Poll(context.Background(), brokenProvider, submitted.BatchID)
	if err != nil {
		t.Fatalf("second Poll() error = %v, want idempotent no-op", err)
	}
	if final.Status != StatusCompleted {
		t.Errorf("Status = %v, want still Completed", final.Status)
	}
}

func TestOrchestrator_PollInferenceReturnsSingleOutcome(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(store)
	startProvider := &fakeBatchProvider{
		name:        "openai",
		startResult: &providers.StartBatchResult{BatchParams: []byte(`{"batch_id":"batch-4"}`)},
	}
	reqs := []*canon.ModelInferenceRequest{canon.NewModelInferenceRequest()}
	submitted, _ := o.Submit(context.Background(), startProvider, "gpt-4o", "greet", "v1", reqs)

	wantResp := canon.ProviderInferenceResponse{FinishReason: canon.FinishStop}
	pollProvider := &fakeBatchProvider{
		name: "openai",
		pollResult: &providers.PollBatchResult{
			Status:  providers.BatchCompleted,
			Outputs: map[string]canon.ProviderInferenceResponse{reqs[0].InferenceID: wantResp},
		},
	}
	resp, err := o.PollInference(context.Background(), pollProvider, submitted.BatchID, reqs[0].InferenceID)
	if err != nil {
		t.Fatalf("PollInference() error = %v", err)
	}
	if resp.FinishReason != canon.FinishStop {
		t.Errorf("FinishReason = %v, want Stop", resp.FinishReason)
	}
}
