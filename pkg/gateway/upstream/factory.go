package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/vango-go/vai-talk/pkg/core/chat"
	"github.com/vango-go/vai-talk/pkg/core/voice/stt"
	"github.com/vango-go/vai-talk/pkg/core/voice/tts"
	"github.com/vango-go/vai-talk/pkg/gateway/config"
)

// Factory builds the remote adapters a configuration selects. All of them
// share HTTPClient.
type Factory struct {
	Config     config.Config
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewHTTPClient returns the client used for every upstream call.
func NewHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.UpstreamConnectTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.UpstreamResponseHeaderTimeout,
		},
	}
}

func (f Factory) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{}
}

func (f Factory) openAIOptions() []option.RequestOption {
	return []option.RequestOption{option.WithHTTPClient(f.client())}
}

// STT returns the transcription adapter for the configured voice provider.
func (f Factory) STT() (*stt.Adapter, error) {
	var p stt.Provider
	switch f.Config.VoiceProvider {
	case config.VoiceProviderOpenAI:
		p = stt.NewOpenAI(f.Config.OpenAIAPIKey, f.Config.OpenAIBaseURL, f.openAIOptions()...)
	case config.VoiceProviderCartesia:
		p = stt.NewCartesiaWithClient(f.Config.CartesiaAPIKey, f.client())
	default:
		return nil, fmt.Errorf("unknown voice provider %q", f.Config.VoiceProvider)
	}
	return &stt.Adapter{
		Provider: p,
		Options: stt.TranscribeOptions{
			Model:    f.Config.STTModel,
			Language: f.Config.STTLanguage,
		},
		UploadDir: f.Config.UploadDir,
		Logger:    f.Logger,
	}, nil
}

// TTS returns the synthesis adapter for the configured voice provider. It
// creates the content directory when missing.
func (f Factory) TTS() (*tts.Adapter, error) {
	var p tts.Provider
	switch f.Config.VoiceProvider {
	case config.VoiceProviderOpenAI:
		p = tts.NewOpenAI(f.Config.OpenAIAPIKey, f.Config.OpenAIBaseURL, f.openAIOptions()...)
	case config.VoiceProviderCartesia:
		p = tts.NewCartesiaWithClient(f.Config.CartesiaAPIKey, f.client())
	default:
		return nil, fmt.Errorf("unknown voice provider %q", f.Config.VoiceProvider)
	}

	store, err := tts.NewArtifactStore(f.Config.ContentDir, f.Config.ContentRoute)
	if err != nil {
		return nil, err
	}
	return &tts.Adapter{
		Provider: p,
		Options: tts.SynthesizeOptions{
			Model:    f.Config.TTSModel,
			Voice:    f.Config.TTSVoice,
			Language: f.Config.STTLanguage,
			Format:   f.Config.TTSFormat,
		},
		Store:  store,
		Logger: f.Logger,
	}, nil
}

// Chat returns the responder for the configured chat provider.
func (f Factory) Chat(ctx context.Context) (chat.Responder, error) {
	switch f.Config.ChatProvider {
	case config.ChatProviderOpenAI:
		return chat.NewOpenAIResponder(f.Config.OpenAIAPIKey, f.Config.OpenAIBaseURL, f.Config.ChatModel, f.Config.ChatStream, f.openAIOptions()...), nil
	case config.ChatProviderGemini:
		return chat.NewGeminiResponder(ctx, chat.GeminiOptions{
			APIKey:     f.Config.GeminiAPIKey,
			Model:      f.Config.ChatModel,
			HTTPClient: f.client(),
		})
	default:
		return nil, fmt.Errorf("unknown chat provider %q", f.Config.ChatProvider)
	}
}
