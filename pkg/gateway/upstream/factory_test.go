package upstream

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-go/vai-talk/pkg/gateway/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		OpenAIAPIKey:   "sk-test",
		GeminiAPIKey:   "gm-test",
		CartesiaAPIKey: "ct-test",
		ChatProvider:   config.ChatProviderOpenAI,
		ChatModel:      "gpt-4o-mini",
		VoiceProvider:  config.VoiceProviderOpenAI,
		TTSVoice:       "alloy",
		TTSFormat:      "mp3",
		STTLanguage:    "ja",
		ContentDir:     filepath.Join(t.TempDir(), "audio"),
		ContentRoute:   "/voice",
		UploadDir:      t.TempDir(),
	}
}

func TestFactory_OpenAIVoice(t *testing.T) {
	f := Factory{Config: testConfig(t)}

	s, err := f.STT()
	if err != nil {
		t.Fatalf("STT: %v", err)
	}
	if s.Provider.Name() != "openai" || s.Options.Language != "ja" {
		t.Fatalf("stt provider=%s options=%+v", s.Provider.Name(), s.Options)
	}

	a, err := f.TTS()
	if err != nil {
		t.Fatalf("TTS: %v", err)
	}
	if a.Provider.Name() != "openai" || a.Options.Voice != "alloy" || a.Options.Format != "mp3" {
		t.Fatalf("tts provider=%s options=%+v", a.Provider.Name(), a.Options)
	}
	if fi, err := os.Stat(f.Config.ContentDir); err != nil || !fi.IsDir() {
		t.Fatalf("content dir not created: %v", err)
	}
}

func TestFactory_CartesiaVoice(t *testing.T) {
	cfg := testConfig(t)
	cfg.VoiceProvider = config.VoiceProviderCartesia
	f := Factory{Config: cfg, HTTPClient: NewHTTPClient(cfg)}

	s, err := f.STT()
	if err != nil {
		t.Fatalf("STT: %v", err)
	}
	if s.Provider.Name() != "cartesia" {
		t.Fatalf("stt provider=%s", s.Provider.Name())
	}
	a, err := f.TTS()
	if err != nil {
		t.Fatalf("TTS: %v", err)
	}
	if a.Provider.Name() != "cartesia" {
		t.Fatalf("tts provider=%s", a.Provider.Name())
	}
}

func TestFactory_Chat(t *testing.T) {
	for _, provider := range []config.ChatProvider{config.ChatProviderOpenAI, config.ChatProviderGemini} {
		cfg := testConfig(t)
		cfg.ChatProvider = provider
		r, err := Factory{Config: cfg}.Chat(context.Background())
		if err != nil {
			t.Fatalf("%s: Chat: %v", provider, err)
		}
		if r.Name() != string(provider) {
			t.Fatalf("responder=%s, want %s", r.Name(), provider)
		}
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.VoiceProvider = "elevenlabs"
	cfg.ChatProvider = "anthropic"
	f := Factory{Config: cfg}

	if _, err := f.STT(); err == nil {
		t.Fatal("expected STT error")
	}
	if _, err := f.TTS(); err == nil {
		t.Fatal("expected TTS error")
	}
	if _, err := f.Chat(context.Background()); err == nil {
		t.Fatal("expected Chat error")
	}
}

func TestNewHTTPClient_UsesHeaderTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.UpstreamConnectTimeout = time.Second
	cfg.UpstreamResponseHeaderTimeout = 7 * time.Second

	c := NewHTTPClient(cfg)
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport=%T", c.Transport)
	}
	if got := tr.ResponseHeaderTimeout; got != 7*time.Second {
		t.Fatalf("ResponseHeaderTimeout=%v", got)
	}
}
