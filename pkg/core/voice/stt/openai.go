package stt

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider transcribes with the OpenAI audio transcription endpoint.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAI creates a Whisper-backed provider. baseURL may be empty.
func NewOpenAI(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIProvider {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &OpenAIProvider{client: openai.NewClient(all...)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	params := openai.AudioTranscriptionNewParams{
		File:  audio,
		Model: openai.AudioModel(model),
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &Transcript{Text: resp.Text, Language: opts.Language}, nil
}
