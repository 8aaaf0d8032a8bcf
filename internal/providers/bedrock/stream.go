package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// StreamEvents executes a ConverseStream call and reduces Bedrock's event
// union into canonical chunks, grounded on BedrockProvider.processStream.
// As in the other adapters, tool-call input fragments are relayed
// per-delta; consolidation is internal/toolstate's job (§4.3).
func (a *Adapter) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	if a.client == nil {
		return nil, router.NewConfig("bedrock: client not initialized")
	}
	resolvedModel := a.modelOrDefault(model)

	input, err := buildConverseInput(req, resolvedModel)
	if err != nil {
		return nil, err
	}

	var stream *bedrockruntime.ConverseStreamOutput
	retryErr := a.Retry(ctx, isRetryableError, func() error {
		var callErr error
		stream, callErr = a.client.ConverseStream(ctx, input)
		return callErr
	})
	if retryErr != nil {
		return nil, router.NewInferenceServer("bedrock", resolvedModel, 0, "", "", retryErr)
	}

	out := make(chan *canon.CompletionChunk)
	go a.pump(ctx, stream, out, resolvedModel)
	return out, nil
}

func (a *Adapter) pump(ctx context.Context, stream *bedrockruntime.ConverseStreamOutput, out chan<- *canon.CompletionChunk, model string) {
	defer close(out)

	eventStream := stream.GetStream()
	defer eventStream.Close()

	toolIndex := -1
	eventChan := eventStream.Events()

	for {
		select {
		case <-ctx.Done():
			out <- &canon.CompletionChunk{Err: ctx.Err(), Done: true}
			return
		case event, ok := <-eventChan:
			if !ok {
				if err := eventStream.Err(); err != nil {
					out <- &canon.CompletionChunk{Err: router.NewInferenceServer("bedrock", model, 0, "", "", err), Done: true}
				} else {
					out <- &canon.CompletionChunk{Done: true}
				}
				return
			}

			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					toolIndex++
					out <- &canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
						Index: toolIndex, ID: aws.ToString(toolUse.Value.ToolUseId), Name: aws.ToString(toolUse.Value.Name),
					}}
				}

			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch delta := ev.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if delta.Value != "" {
						out <- &canon.CompletionChunk{BlockID: canon.ChunkBlockText, Text: delta.Value}
					}
				case *types.ContentBlockDeltaMemberToolUse:
					if delta.Value.Input != nil {
						out <- &canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
							Index: toolIndex, Arguments: *delta.Value.Input,
						}}
					}
				}

			case *types.ConverseStreamOutputMemberMessageStop:
				fr := mapFinishReason(string(ev.Value.StopReason))
				out <- &canon.CompletionChunk{Done: true, FinishReason: &fr}
				return

			case *types.ConverseStreamOutputMemberMetadata:
				usage := ev.Value.Usage
				if usage != nil {
					in := int(aws.ToInt32(usage.InputTokens))
					o := int(aws.ToInt32(usage.OutputTokens))
					out <- &canon.CompletionChunk{Usage: &canon.Usage{InputTokens: &in, OutputTokens: &o}}
				}
			}
		}
	}
}
