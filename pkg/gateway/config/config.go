package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/chat"
)

type ChatProvider string

const (
	ChatProviderOpenAI ChatProvider = "openai"
	ChatProviderGemini ChatProvider = "gemini"
)

type VoiceProvider string

const (
	VoiceProviderOpenAI   VoiceProvider = "openai"
	VoiceProviderCartesia VoiceProvider = "cartesia"
)

type Config struct {
	Addr string

	// If true, client identity may be derived from proxy headers like X-Forwarded-For.
	// This should only be enabled when the service is deployed behind a trusted proxy/LB.
	TrustProxyHeaders bool

	// MaxBodyBytes caps JSON bodies; MaxAudioBytes caps audio uploads.
	MaxBodyBytes  int64
	MaxAudioBytes int64

	// CORS. Empty disables it; "*" allows any origin.
	CORSAllowedOrigins map[string]struct{}

	// Credentials
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	CartesiaAPIKey string

	// Chat
	ChatProvider  ChatProvider
	ChatModel     string
	ChatStream    bool
	SystemPrompt  string
	HistoryWindow int

	// Voice
	VoiceProvider VoiceProvider
	STTModel      string
	STTLanguage   string
	TTSModel      string
	TTSVoice      string
	TTSFormat     string

	// Storage
	ContentDir   string
	ContentRoute string
	UploadDir    string

	// Stage timeouts
	STTTimeout  time.Duration
	ChatTimeout time.Duration
	TTSTimeout  time.Duration

	// In-memory limits (per client IP).
	LimitRPS                   float64
	LimitBurst                 int
	LimitMaxConcurrentRequests int

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	HandlerTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Upstream HTTP client defaults
	UpstreamConnectTimeout        time.Duration
	UpstreamResponseHeaderTimeout time.Duration

	LogFormat string
	LogLevel  string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                          envOr("VAI_TALK_ADDR", ":8000"),
		TrustProxyHeaders:             envBoolOr("VAI_TALK_TRUST_PROXY_HEADERS", false),
		MaxBodyBytes:                  envInt64Or("VAI_TALK_MAX_BODY_BYTES", 1<<20),   // 1 MiB
		MaxAudioBytes:                 envInt64Or("VAI_TALK_MAX_AUDIO_BYTES", 25<<20), // 25 MiB
		CORSAllowedOrigins:            make(map[string]struct{}),
		OpenAIAPIKey:                  envOr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:                 envOr("OPENAI_BASE_URL", ""),
		GeminiAPIKey:                  envOr("GEMINI_API_KEY", ""),
		CartesiaAPIKey:                envOr("CARTESIA_API_KEY", ""),
		ChatProvider:                  ChatProvider(strings.ToLower(envOr("VAI_TALK_CHAT_PROVIDER", string(ChatProviderOpenAI)))),
		ChatModel:                     envOr("VAI_TALK_CHAT_MODEL", ""),
		ChatStream:                    envBoolOr("VAI_TALK_CHAT_STREAM", true),
		SystemPrompt:                  chat.DefaultSystemPrompt,
		HistoryWindow:                 envIntOr("VAI_TALK_HISTORY_WINDOW", chat.DefaultWindow),
		VoiceProvider:                 VoiceProvider(strings.ToLower(envOr("VAI_TALK_VOICE_PROVIDER", string(VoiceProviderOpenAI)))),
		STTModel:                      envOr("VAI_TALK_STT_MODEL", ""),
		STTLanguage:                   envOr("VAI_TALK_STT_LANGUAGE", "ja"),
		TTSModel:                      envOr("VAI_TALK_TTS_MODEL", ""),
		TTSVoice:                      envOr("VAI_TALK_TTS_VOICE", ""),
		TTSFormat:                     strings.ToLower(envOr("VAI_TALK_TTS_FORMAT", "mp3")),
		ContentDir:                    envOr("VAI_TALK_CONTENT_DIR", "static/audio"),
		ContentRoute:                  envOr("VAI_TALK_CONTENT_ROUTE", "/voice"),
		UploadDir:                     envOr("VAI_TALK_UPLOAD_DIR", os.TempDir()),
		STTTimeout:                    envDurationOr("VAI_TALK_STT_TIMEOUT", 30*time.Second),
		ChatTimeout:                   envDurationOr("VAI_TALK_CHAT_TIMEOUT", 60*time.Second),
		TTSTimeout:                    envDurationOr("VAI_TALK_TTS_TIMEOUT", 30*time.Second),
		LimitRPS:                      envFloat64Or("VAI_TALK_RATE_LIMIT_RPS", 2.0),
		LimitBurst:                    envIntOr("VAI_TALK_RATE_LIMIT_BURST", 4),
		LimitMaxConcurrentRequests:    envIntOr("VAI_TALK_MAX_CONCURRENT_REQUESTS", 8),
		ReadHeaderTimeout:             envDurationOr("VAI_TALK_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:                   envDurationOr("VAI_TALK_READ_TIMEOUT", 60*time.Second),
		HandlerTimeout:                envDurationOr("VAI_TALK_TOTAL_REQUEST_TIMEOUT", 3*time.Minute),
		ShutdownGracePeriod:           envDurationOr("VAI_TALK_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		UpstreamConnectTimeout:        envDurationOr("VAI_TALK_CONNECT_TIMEOUT", 5*time.Second),
		UpstreamResponseHeaderTimeout: envDurationOr("VAI_TALK_RESPONSE_HEADER_TIMEOUT", 60*time.Second),
		LogFormat:                     strings.ToLower(envOr("VAI_TALK_LOG_FORMAT", "text")),
		LogLevel:                      strings.ToLower(envOr("VAI_TALK_LOG_LEVEL", "info")),
	}

	for _, origin := range splitCSV(os.Getenv("VAI_TALK_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if file := envOr("VAI_TALK_PERSONA_FILE", ""); file != "" {
		p, err := LoadPersona(file)
		if err != nil {
			return Config{}, configError("VAI_TALK_PERSONA_FILE: %v", err)
		}
		p.apply(&cfg)
	}

	switch cfg.ChatProvider {
	case ChatProviderOpenAI:
		if cfg.ChatModel == "" {
			cfg.ChatModel = "gpt-4o-mini"
		}
	case ChatProviderGemini:
		if cfg.ChatModel == "" {
			cfg.ChatModel = "gemini-2.5-flash"
		}
	default:
		return Config{}, configError("VAI_TALK_CHAT_PROVIDER must be one of openai|gemini")
	}

	switch cfg.VoiceProvider {
	case VoiceProviderOpenAI:
		if cfg.TTSVoice == "" {
			cfg.TTSVoice = "alloy"
		}
	case VoiceProviderCartesia:
	default:
		return Config{}, configError("VAI_TALK_VOICE_PROVIDER must be one of openai|cartesia")
	}

	switch cfg.TTSFormat {
	case "mp3", "wav":
	default:
		return Config{}, configError("VAI_TALK_TTS_FORMAT must be one of mp3|wav")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, configError("VAI_TALK_LOG_FORMAT must be one of text|json")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, configError("VAI_TALK_LOG_LEVEL must be one of debug|info|warn|error")
	}

	if cfg.HistoryWindow < 1 {
		return Config{}, configError("VAI_TALK_HISTORY_WINDOW must be >= 1")
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return Config{}, configError("system prompt must not be empty")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, configError("VAI_TALK_MAX_BODY_BYTES must be > 0")
	}
	if cfg.MaxAudioBytes <= 0 {
		return Config{}, configError("VAI_TALK_MAX_AUDIO_BYTES must be > 0")
	}
	if !strings.HasPrefix(cfg.ContentRoute, "/") || strings.TrimRight(cfg.ContentRoute, "/") == "" {
		return Config{}, configError("VAI_TALK_CONTENT_ROUTE must be an absolute path other than /")
	}
	cfg.ContentRoute = path.Clean(cfg.ContentRoute)
	if cfg.STTTimeout <= 0 {
		return Config{}, configError("VAI_TALK_STT_TIMEOUT must be > 0")
	}
	if cfg.ChatTimeout <= 0 {
		return Config{}, configError("VAI_TALK_CHAT_TIMEOUT must be > 0")
	}
	if cfg.TTSTimeout <= 0 {
		return Config{}, configError("VAI_TALK_TTS_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, configError("VAI_TALK_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, configError("VAI_TALK_READ_TIMEOUT must be > 0")
	}
	if cfg.HandlerTimeout <= 0 {
		return Config{}, configError("VAI_TALK_TOTAL_REQUEST_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, configError("VAI_TALK_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.UpstreamConnectTimeout <= 0 {
		return Config{}, configError("VAI_TALK_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.UpstreamResponseHeaderTimeout <= 0 {
		return Config{}, configError("VAI_TALK_RESPONSE_HEADER_TIMEOUT must be > 0")
	}
	if cfg.LimitRPS < 0 {
		return Config{}, configError("VAI_TALK_RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.LimitBurst < 0 {
		return Config{}, configError("VAI_TALK_RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.LimitMaxConcurrentRequests < 0 {
		return Config{}, configError("VAI_TALK_MAX_CONCURRENT_REQUESTS must be >= 0")
	}

	if err := cfg.checkCredentials(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// checkCredentials requires a key for every provider the config selects.
func (c Config) checkCredentials() error {
	needOpenAI := c.ChatProvider == ChatProviderOpenAI || c.VoiceProvider == VoiceProviderOpenAI
	if needOpenAI && c.OpenAIAPIKey == "" {
		return configError("OPENAI_API_KEY must be set")
	}
	if c.ChatProvider == ChatProviderGemini && c.GeminiAPIKey == "" {
		return configError("GEMINI_API_KEY must be set when VAI_TALK_CHAT_PROVIDER=gemini")
	}
	if c.VoiceProvider == VoiceProviderCartesia && c.CartesiaAPIKey == "" {
		return configError("CARTESIA_API_KEY must be set when VAI_TALK_VOICE_PROVIDER=cartesia")
	}
	return nil
}

func configError(format string, args ...any) *core.Error {
	return core.NewConfigurationError(fmt.Sprintf(format, args...))
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
