package chat

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/vango-go/vai-talk/pkg/core/types"
)

// GeminiResponder answers prompts with the Gemini API.
type GeminiResponder struct {
	client *genai.Client
	model  string
}

// GeminiOptions configures NewGeminiResponder.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewGeminiResponder(ctx context.Context, opts GeminiOptions) (*GeminiResponder, error) {
	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiResponder{client: client, model: model}, nil
}

func (r *GeminiResponder) Name() string { return "gemini" }

func (r *GeminiResponder) Reply(ctx context.Context, msgs []types.Message) (string, error) {
	system, contents := toGeminiContents(msgs)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return Assemble(geminiChunks(r.client.Models.GenerateContentStream(ctx, r.model, contents, cfg)))
}

func geminiChunks(stream iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		finished := false
		for resp, err := range stream {
			if err != nil {
				yield("", fmt.Errorf("gemini streaming error: %w", err))
				return
			}
			if resp == nil || len(resp.Candidates) == 0 {
				continue
			}
			cand := resp.Candidates[0]
			if cand.Content != nil {
				for _, p := range cand.Content.Parts {
					if p == nil || p.Thought || p.Text == "" {
						continue
					}
					if !yield(p.Text, nil) {
						return
					}
				}
			}
			if cand.FinishReason != "" {
				finished = true
			}
		}
		if !finished {
			yield("", ErrTruncatedStream)
		}
	}
}

// toGeminiContents splits out the system instruction. Gemini names the
// assistant role "model".
func toGeminiContents(msgs []types.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
		case types.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}
