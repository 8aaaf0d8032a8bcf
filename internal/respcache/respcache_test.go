package respcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vectorcast/gateway/internal/canon"
)

type countingDispatcher struct {
	calls atomic.Int64
	delay time.Duration
}

func (c *countingDispatcher) Infer(ctx context.Context, model string, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return &canon.ProviderInferenceResponse{FinishReason: canon.FinishStop}, nil
}

func (c *countingDispatcher) InferStream(ctx context.Context, model string, req *canon.ModelInferenceRequest) (<-chan *canon.CompletionChunk, error) {
	return nil, nil
}

func TestFingerprint_SameContentSameKey(t *testing.T) {
	req1 := &canon.ModelInferenceRequest{InferenceID: "a", System: "hi", Sampling: canon.SamplingParams{}}
	req2 := &canon.ModelInferenceRequest{InferenceID: "b", System: "hi", Sampling: canon.SamplingParams{}}

	f1, err := Fingerprint("gpt-4o", req1)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	f2, err := Fingerprint("gpt-4o", req2)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if f1 != f2 {
		t.Errorf("fingerprints differ despite identical cacheable content: %q vs %q", f1, f2)
	}
}

func TestFingerprint_DifferentContentDifferentKey(t *testing.T) {
	req1 := &canon.ModelInferenceRequest{System: "hi"}
	req2 := &canon.ModelInferenceRequest{System: "bye"}

	f1, _ := Fingerprint("gpt-4o", req1)
	f2, _ := Fingerprint("gpt-4o", req2)
	if f1 == f2 {
		t.Error("fingerprints match despite different content")
	}
}

func TestDispatcher_Infer_CachesSecondCall(t *testing.T) {
	inner := &countingDispatcher{}
	d := NewDispatcher(inner, time.Minute)

	req := &canon.ModelInferenceRequest{System: "hi"}
	if _, err := d.Infer(context.Background(), "gpt-4o", req); err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if _, err := d.Infer(context.Background(), "gpt-4o", req); err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner.calls = %d, want 1 (second call should hit cache)", inner.calls.Load())
	}
}

func TestDispatcher_Infer_DeduplicatesConcurrentMisses(t *testing.T) {
	inner := &countingDispatcher{delay: 50 * time.Millisecond}
	d := NewDispatcher(inner, time.Minute)
	req := &canon.ModelInferenceRequest{System: "concurrent"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Infer(context.Background(), "gpt-4o", req); err != nil {
				t.Errorf("Infer() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if inner.calls.Load() != 1 {
		t.Errorf("inner.calls = %d, want 1 (concurrent misses should single-flight)", inner.calls.Load())
	}
}
