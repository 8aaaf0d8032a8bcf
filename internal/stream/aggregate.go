// Package stream implements the Streaming Aggregator (C8): it consumes a
// provider adapter's canonical chunk sequence and produces the same
// ProviderInferenceResponse shape the non-streaming path produces (§4.7,
// §4.8), grounded on internal/agent/providers/openai.go's processStream
// goroutine idiom (channel-based <-chan *CompletionChunk is already this
// module's streaming convention, carried into every adapter in
// internal/providers).
package stream

import (
	"context"
	"sort"
	"time"

	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/toolstate"
)

// Aggregate consumes chunks until the channel closes (or ctx is canceled,
// in which case the underlying source is expected to close its own channel
// in response to ctx.Done() — every adapter's pump goroutine already
// selects on ctx.Done(), so canceling ctx here is sufficient to propagate
// the cancellation per §4.8's last bullet) and returns the reconciled
// response.
//
// started is the time the call was issued (before the first chunk arrives),
// used to compute TTFT — stamped on the first chunk carrying non-empty
// content, per §4.8.
func Aggregate(ctx context.Context, chunks <-chan *canon.CompletionChunk, started time.Time) (*canon.ProviderInferenceResponse, error) {
	texts := make(map[string]*stringsBuilder)
	reducer := toolstate.NewReducer()

	var usage canon.Usage
	var finish canon.FinishReason
	var ttft time.Duration
	ttftSet := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return finalize(texts, reducer, usage, finish, started, ttft), nil
			}
			if chunk.Err != nil {
				return nil, chunk.Err
			}

			if !ttftSet && (chunk.Text != "" || chunk.Thought != "" || chunk.ToolCallDelta != nil) {
				ttft = time.Since(started)
				ttftSet = true
			}

			if chunk.Text != "" {
				appendText(texts, chunk.BlockID, chunk.Text)
			}
			if chunk.Thought != "" {
				appendText(texts, canon.ChunkBlockThought, chunk.Thought)
			}
			if chunk.ToolCallDelta != nil {
				if err := reducer.Apply(chunk.ToolCallDelta); err != nil {
					return nil, err
				}
			}
			if chunk.Usage != nil {
				usage = *chunk.Usage
			}
			if chunk.FinishReason != nil {
				finish = *chunk.FinishReason
			}
			if chunk.Done {
				return finalize(texts, reducer, usage, finish, started, ttft), nil
			}
		}
	}
}

type stringsBuilder struct {
	parts []string
}

func (b *stringsBuilder) append(s string) { b.parts = append(b.parts, s) }

func (b *stringsBuilder) String() string {
	total := 0
	for _, p := range b.parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range b.parts {
		buf = append(buf, p...)
	}
	return string(buf)
}

func appendText(texts map[string]*stringsBuilder, blockID, text string) {
	if blockID == "" {
		blockID = canon.ChunkBlockText
	}
	b, ok := texts[blockID]
	if !ok {
		b = &stringsBuilder{}
		texts[blockID] = b
	}
	b.append(text)
}

func finalize(texts map[string]*stringsBuilder, reducer *toolstate.Reducer, usage canon.Usage, finish canon.FinishReason, started time.Time, ttft time.Duration) *canon.ProviderInferenceResponse {
	var output []canon.ContentBlockOutput

	if b, ok := texts[canon.ChunkBlockText]; ok && b.String() != "" {
		output = append(output, canon.Text{Text: b.String()})
	}
	if b, ok := texts[canon.ChunkBlockThought]; ok && b.String() != "" {
		output = append(output, canon.Thought{Text: b.String()})
	}
	// Any other block id (a provider using a private channel) is emitted as
	// plain text, in sorted id order, after the two reserved ids.
	var extraIDs []string
	for id := range texts {
		if id != canon.ChunkBlockText && id != canon.ChunkBlockThought {
			extraIDs = append(extraIDs, id)
		}
	}
	sort.Strings(extraIDs)
	for _, id := range extraIDs {
		if s := texts[id].String(); s != "" {
			output = append(output, canon.Text{Text: s})
		}
	}

	for _, call := range reducer.Finish() {
		output = append(output, call)
	}

	return &canon.ProviderInferenceResponse{
		Output:       output,
		Usage:        usage,
		FinishReason: finish,
		Latency: canon.Latency{
			Kind:  canon.LatencyStreaming,
			TTFT:  ttft,
			Total: time.Since(started),
		},
	}
}
