// Package respcache implements the process-wide model-inference-response
// cache (§5 "Model-inference-response cache" / DS-2): a fingerprint-keyed
// cache over internal/variant.Dispatcher, composed from
// internal/infra.TTLCache (storage) and internal/infra.Group (at-most-one
// concurrent build per fingerprint) — the same two primitives the teacher
// already ships in internal/infra/cache.go and internal/infra/singleflight.go,
// adapted here instead of reimplemented.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/infra"
	"github.com/vectorcast/gateway/internal/router"
	"github.com/vectorcast/gateway/internal/variant"
)

// fingerprintInput is the subset of a request that determines cacheability:
// InferenceID is intentionally excluded (unique per call, not per content),
// as is Stream (streaming and blocking calls against identical content
// should hit the same cached response once aggregated).
type fingerprintInput struct {
	Model        string
	System       string
	Messages     []canon.RequestMessage
	ToolConfig   *canon.ToolConfig
	OutputSchema []byte
	JSONMode     canon.JSONMode
	FunctionType canon.FunctionType
	Sampling     canon.SamplingParams
}

// Fingerprint derives the cache key for (model, canonical request, sampling
// params) per DS-2. Returns an error only if req's content is not
// JSON-marshalable, which no canon type in this module produces.
func Fingerprint(model string, req *canon.ModelInferenceRequest) (string, error) {
	in := fingerprintInput{
		Model:        model,
		System:       req.System,
		Messages:     req.Messages,
		ToolConfig:   req.ToolConfig,
		OutputSchema: req.OutputSchema,
		JSONMode:     req.JSONMode,
		FunctionType: req.FunctionType,
		Sampling:     req.Sampling,
	}
	encoded, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Dispatcher wraps a variant.Dispatcher with a process-wide response cache.
// It implements variant.Dispatcher itself so it can be dropped in anywhere
// a dispatcher is expected.
type Dispatcher struct {
	Inner variant.Dispatcher
	TTL   time.Duration

	cache   *infra.TTLCache[string, *canon.ProviderInferenceResponse]
	singles infra.Group[string, *canon.ProviderInferenceResponse]
}

// NewDispatcher constructs a caching wrapper around inner with the given
// entry TTL.
func NewDispatcher(inner variant.Dispatcher, ttl time.Duration) *Dispatcher {
	return &Dispatcher{
		Inner: inner,
		TTL:   ttl,
		cache: infra.NewTTLCache[string, *canon.ProviderInferenceResponse](infra.CacheConfig{DefaultTTL: ttl}),
	}
}

// Infer serves from cache when possible. A Fingerprint failure maps to
// router.KindCache and bypasses the cache entirely rather than failing the
// caller (§7: cache errors never fail the request, only skip the
// optimization).
func (d *Dispatcher) Infer(ctx context.Context, model string, req *canon.ModelInferenceRequest) (*canon.ProviderInferenceResponse, error) {
	key, err := Fingerprint(model, req)
	if err != nil {
		_ = router.NewCache(err)
		return d.Inner.Infer(ctx, model, req)
	}

	if resp, ok := d.cache.Get(key); ok {
		return resp, nil
	}

	resp, err, _ := d.singles.Do(key, func() (*canon.ProviderInferenceResponse, error) {
		return d.Inner.Infer(ctx, model, req)
	})
	if err != nil {
		return nil, err
	}
	d.cache.SetWithTTL(key, resp, d.TTL)
	return resp, nil
}

// InferStream is never cached (§5 scopes the response cache to the
// blocking/aggregated shape); it passes through to Inner directly.
func (d *Dispatcher) InferStream(ctx context.Context, model string, req *canon.ModelInferenceRequest) (<-chan *canon.CompletionChunk, error) {
	return d.Inner.InferStream(ctx, model, req)
}
