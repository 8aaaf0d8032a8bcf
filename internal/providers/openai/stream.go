package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vectorcast/gateway/internal/canon"
	"github.com/vectorcast/gateway/internal/router"
)

// StreamEvents executes a streaming Chat Completions call and converts the
// SDK's delta stream into canonical chunks, grounded on
// internal/agent/providers/openai.go's processStream. Tool-call deltas are
// forwarded as canon.ToolCallDelta elements; the index-keyed reducer that
// consolidates them lives in internal/toolstate (§4.3), not here — per the
// adapter statelessness contract (§4.1), this function only relays deltas
// in order.
func (a *Adapter) StreamEvents(ctx context.Context, req *canon.ModelInferenceRequest, model string) (<-chan *canon.CompletionChunk, error) {
	if a.client == nil {
		return nil, router.NewConfig("openai: api key not configured")
	}

	body, err := a.MakeBody(ctx, req, model)
	if err != nil {
		return nil, err
	}
	chatReq, err := toSDKRequest(body)
	if err != nil {
		return nil, router.NewSerialization(err)
	}
	chatReq.Stream = true

	var stream *openai.ChatCompletionStream
	retryErr := a.Retry(ctx, isRetryableError, func() error {
		var callErr error
		stream, callErr = a.client.CreateChatCompletionStream(ctx, chatReq)
		return callErr
	})
	if retryErr != nil {
		return nil, router.NewInferenceServer("openai", model, 0, string(body), "", retryErr)
	}

	chunks := make(chan *canon.CompletionChunk)
	go a.pump(ctx, stream, chunks)
	return chunks, nil
}

func (a *Adapter) pump(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- *canon.CompletionChunk) {
	defer close(out)
	defer stream.Close()

	ttftStamped := false
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			out <- &canon.CompletionChunk{Err: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				var fr = canon.FinishStop
				out <- &canon.CompletionChunk{Done: true, FinishReason: &fr}
				return
			}
			out <- &canon.CompletionChunk{Err: err, Done: true}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			if !ttftStamped {
				ttftStamped = true
				_ = time.Since(start) // TTFT is stamped by the aggregator (§4.8) using chunk arrival time.
			}
			out <- &canon.CompletionChunk{BlockID: canon.ChunkBlockText, Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			out <- &canon.CompletionChunk{ToolCallDelta: &canon.ToolCallDelta{
				Index: idx, ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments,
			}}
		}

		if resp.Choices[0].FinishReason != "" {
			fr := mapFinishReason(string(resp.Choices[0].FinishReason))
			out <- &canon.CompletionChunk{Done: false, FinishReason: &fr}
		}
	}
}

// toSDKRequest unmarshals our own wire body back into the SDK's typed
// request so the actual network call goes through go-openai's HTTP/SSE
// plumbing. Fields this adapter controls beyond the SDK's model (the
// allowed_tools tool_choice shape) are preserved in MakeBody's raw_request
// for audit even when the SDK call below only understands the common
// auto/required/specific forms.
func toSDKRequest(body []byte) (openai.ChatCompletionRequest, error) {
	var wb wireBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	req := openai.ChatCompletionRequest{Model: wb.Model}
	for _, m := range wb.Messages {
		sdkMsg := openai.ChatCompletionMessage{Role: m.Role, ToolCallID: m.ToolCallID}
		if s, ok := m.Content.(string); ok {
			sdkMsg.Content = s
		}
		for _, tc := range m.ToolCalls {
			sdkMsg.ToolCalls = append(sdkMsg.ToolCalls, openai.ToolCall{
				ID: tc.ID, Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
			})
		}
		req.Messages = append(req.Messages, sdkMsg)
	}
	if wb.MaxTokens != nil {
		req.MaxTokens = *wb.MaxTokens
	}
	if wb.Temperature != nil {
		req.Temperature = float32(*wb.Temperature)
	}
	for _, t := range wb.Tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name: t.Function.Name, Description: t.Function.Description, Parameters: t.Function.Parameters,
			},
		})
	}
	if s, ok := wb.ToolChoice.(string); ok {
		req.ToolChoice = s
	}
	return req, nil
}
