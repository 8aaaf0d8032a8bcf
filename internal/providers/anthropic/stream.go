package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// StreamEvents executes a streaming Messages call and reduces the SDK's SSE
// event union into canonical chunks, grounded on
// AnthropicProvider.processStream. Tool-call input JSON is forwarded
// fragment-by-fragment as canon.ToolCallDelta; consolidation happens in
// internal/toolstate (§4.3), not here, per the adapter statelessness contract.
func (a *Adapter) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	if !a.hasKey {
		return nil, router.NewConfig("anthropic: api key not configured")
	}

	resolvedModel := a.modelOrDefault(model)
	params, err := a.buildParams(req, resolvedModel)
	if err != nil {
		return nil, err
	}

	var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	retryErr := a.Retry(ctx, isRetryableError, func() error {
		stream = a.client.Messages.NewStreaming(ctx, params)
		return nil
	})
	if retryErr != nil {
		return nil, router.NewInferenceServer("anthropic", resolvedModel, 0, "", "", retryErr)
	}

	out := make(chan *canon.CompletionChunk)
	go a.pump(stream, out, resolvedModel)
	return out, nil
}

func (a *Adapter) pump(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- *canon.CompletionChunk, model string) {
	defer close(out)

	toolIndex := -1
	inputTokens := 0
	outputTokens := 0
	emptyEvents := 0

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			if ms.Message.Usage.InputTokens > 0 {
				inputTokens = int(ms.Message.Usage.InputTokens)
			}
			processed = true

		case "content_block_start":
			cbs := event.AsContentBlockStart()
			block := cbs.ContentBlock
			switch block.Type {
			case "thinking":
				processed = true
			case "tool_use":
				toolUse := block.AsToolUse()
				toolIndex++
				out <- &canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
					Index: toolIndex, ID: toolUse.ID, Name: toolUse.Name,
				}}
				processed = true
			}

		case "content_block_delta":
			cbd := event.AsContentBlockDelta()
			delta := cbd.Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					out <- &canon.CompletionChunk{BlockID: canon.ChunkBlockText, Text: delta.Text}
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					out <- &canon.CompletionChunk{BlockID: canon.ChunkBlockThought, Thought: delta.Thinking}
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					out <- &canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
						Index: toolIndex, Arguments: delta.PartialJSON,
					}}
					processed = true
				}
			}

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				outputTokens = int(md.Usage.OutputTokens)
			}
			if md.Delta.StopReason != "" {
				fr := mapFinishReason(string(md.Delta.StopReason))
				out <- &canon.CompletionChunk{FinishReason: &fr}
			}
			processed = true

		case "message_stop":
			in, o := inputTokens, outputTokens
			out <- &canon.CompletionChunk{
				Done:  true,
				Usage: &canon.Usage{InputTokens: &in, OutputTokens: &o},
			}
			return

		case "error":
			out <- &canon.CompletionChunk{Err: router.NewInferenceServer("anthropic", model, 0, "", "", errAnthropicStream), Done: true}
			return
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents() {
				out <- &canon.CompletionChunk{Err: router.NewInferenceServer("anthropic", model, 0, "", "", errMalformedStream), Done: true}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		out <- &canon.CompletionChunk{Err: router.NewInferenceServer("anthropic", model, 0, "", "", err), Done: true}
	}
}
