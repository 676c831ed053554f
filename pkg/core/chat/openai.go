package chat

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/vango-go/vai-talk/pkg/core/types"
)

// OpenAIResponder answers prompts with an OpenAI-compatible chat completion.
type OpenAIResponder struct {
	client openai.Client
	model  string
	stream bool
}

// NewOpenAIResponder builds a responder. baseURL may be empty. When stream is
// true the reply is assembled from a streamed completion.
func NewOpenAIResponder(apiKey, baseURL, model string, stream bool, opts ...option.RequestOption) *OpenAIResponder {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)

	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIResponder{
		client: openai.NewClient(all...),
		model:  model,
		stream: stream,
	}
}

func (r *OpenAIResponder) Name() string { return "openai" }

func (r *OpenAIResponder) Reply(ctx context.Context, msgs []types.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(r.model),
		Messages: toOpenAIMessages(msgs),
	}

	if r.stream {
		stream := r.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()
		return Assemble(openAIChunks(stream))
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", generationFailed(fmt.Errorf("openai chat: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", generationFailed(ErrEmptyStream)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", generationFailed(ErrEmptyStream)
	}
	return text, nil
}

// openAIChunks yields content deltas. A stream that stops before any choice
// reports a finish reason yields ErrTruncatedStream.
func openAIChunks(stream *ssestream.Stream[openai.ChatCompletionChunk]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		finished := false
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
			if string(choice.FinishReason) != "" {
				finished = true
			}
		}
		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("openai streaming error: %w", err))
			return
		}
		if !finished {
			yield("", ErrTruncatedStream)
		}
	}
}

func toOpenAIMessages(msgs []types.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case types.RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}
