package gemini

import (
	"context"
	"encoding/json"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
	"google.golang.org/genai"
)

func marshalArgs(args map[string]any) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StreamEvents consumes genai.Models.GenerateContentStream's Go 1.23
// iter.Seq2[*GenerateContentResponse, error] and reduces it into canonical
// chunks, grounded on GoogleProvider.processStreamResponse. As in the other
// adapters, function-call argument fragments are relayed per-delta rather
// than consolidated here (internal/toolstate does that, §4.3).
func (a *Adapter) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	if a.client == nil {
		return nil, router.NewConfig("gemini: client not initialized")
	}
	resolvedModel := a.modelOrDefault(model)

	resolvedModel, contents, config, err := buildCall(req, resolvedModel)
	if err != nil {
		return nil, err
	}

	var iterSeq func(func(*genai.GenerateContentResponse, error) bool)
	retryErr := a.Retry(ctx, isRetryableError, func() error {
		iterSeq = a.client.Models.GenerateContentStream(ctx, resolvedModel, contents, config)
		return nil
	})
	if retryErr != nil {
		return nil, router.NewInferenceServer("gemini", resolvedModel, 0, "", "", retryErr)
	}

	out := make(chan *canon.CompletionChunk)
	go a.pump(ctx, iterSeq, out, resolvedModel)
	return out, nil
}

func (a *Adapter) pump(ctx context.Context, seq func(func(*genai.GenerateContentResponse, error) bool), out chan<- *canon.CompletionChunk, model string) {
	defer close(out)

	toolSeq := 0
	stopped := false
	emit := func(chunk *canon.CompletionChunk) bool {
		select {
		case <-ctx.Done():
			out <- &canon.CompletionChunk{Err: ctx.Err(), Done: true}
			stopped = true
			return false
		case out <- chunk:
			return true
		}
	}

	for resp, err := range seq {
		if stopped {
			return
		}
		if err != nil {
			emit(&canon.CompletionChunk{Err: router.NewInferenceServer("gemini", model, 0, "", "", err), Done: true})
			return
		}
		if resp == nil || len(resp.Candidates) == 0 {
			continue
		}

		cand := resp.Candidates[0]
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part.FunctionCall != nil {
					args, marshalErr := marshalArgs(part.FunctionCall.Args)
					if marshalErr != nil {
						continue
					}
					if !emit(&canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
						Index: toolSeq, ID: generateToolCallID(part.FunctionCall.Name, toolSeq),
						Name: part.FunctionCall.Name, Arguments: args,
					}}) {
						return
					}
					toolSeq++
					continue
				}
				if part.Text != "" {
					if !emit(&canon.CompletionChunk{BlockID: canon.ChunkBlockText, Text: part.Text}) {
						return
					}
				}
			}
		}

		if resp.UsageMetadata != nil {
			in := int(resp.UsageMetadata.PromptTokenCount)
			o := int(resp.UsageMetadata.CandidatesTokenCount)
			if !emit(&canon.CompletionChunk{Usage: &canon.Usage{InputTokens: &in, OutputTokens: &o}}) {
				return
			}
		}

		if cand.FinishReason != "" {
			fr := mapFinishReason(string(cand.FinishReason))
			emit(&canon.CompletionChunk{Done: true, FinishReason: &fr})
			return
		}
	}

	if !stopped {
		out <- &canon.CompletionChunk{Done: true}
	}
}
