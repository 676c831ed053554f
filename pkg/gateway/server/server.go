package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core/chat"
	"github.com/vango-go/vai-talk/pkg/core/pipeline"
	"github.com/vango-go/vai-talk/pkg/gateway/config"
	"github.com/vango-go/vai-talk/pkg/gateway/handlers"
	"github.com/vango-go/vai-talk/pkg/gateway/lifecycle"
	"github.com/vango-go/vai-talk/pkg/gateway/metrics"
	"github.com/vango-go/vai-talk/pkg/gateway/mw"
	"github.com/vango-go/vai-talk/pkg/gateway/ratelimit"
	"github.com/vango-go/vai-talk/pkg/gateway/upstream"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	turns     handlers.TurnRunner
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	lifecycle *lifecycle.Lifecycle
}

// New wires the configured providers into a turn orchestrator and returns
// a server ready to route requests.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := upstream.Factory{
		Config:     cfg,
		HTTPClient: upstream.NewHTTPClient(cfg),
		Logger:     logger,
	}
	transcriber, err := f.STT()
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}
	synthesizer, err := f.TTS()
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	responder, err := f.Chat(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	m := metrics.New()
	orch := pipeline.New(pipeline.Deps{
		STT:       transcriber,
		Responder: responder,
		TTS:       synthesizer,
		Prompt:    chat.PromptBuilder{System: cfg.SystemPrompt, Window: cfg.HistoryWindow},
		Timeouts: pipeline.Timeouts{
			STT:  cfg.STTTimeout,
			Chat: cfg.ChatTimeout,
			TTS:  cfg.TTSTimeout,
		},
		Logger:   logger,
		Observer: m,
	})

	logger.Info("providers ready",
		"chat_provider", cfg.ChatProvider,
		"chat_model", cfg.ChatModel,
		"voice_provider", cfg.VoiceProvider,
	)
	return newServer(cfg, logger, orch, m), nil
}

func newServer(cfg config.Config, logger *slog.Logger, turns handlers.TurnRunner, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		turns:     turns,
		metrics:   m,
		lifecycle: &lifecycle.Lifecycle{},
		limiter: ratelimit.New(ratelimit.Config{
			RPS:                   cfg.LimitRPS,
			Burst:                 cfg.LimitBurst,
			MaxConcurrentRequests: cfg.LimitMaxConcurrentRequests,
		}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, Lifecycle: s.lifecycle})
	s.mux.Handle("/metrics", s.metrics.Handler())

	transcribe := s.track(handlers.TranscribeHandler{Config: s.cfg, Turns: s.turns})
	s.mux.Handle("/transcribe", transcribe)
	s.mux.Handle("/onsei/{$}", transcribe)

	s.mux.Handle("/converse", s.track(handlers.ConverseHandler{Config: s.cfg, Turns: s.turns, Mode: handlers.ConverseAny}))
	s.mux.Handle("/audio/{$}", s.track(handlers.ConverseHandler{Config: s.cfg, Turns: s.turns, Mode: handlers.ConverseText}))
	s.mux.Handle("/upload-audio/{$}", s.track(handlers.ConverseHandler{Config: s.cfg, Turns: s.turns, Mode: handlers.ConverseAudio}))

	if s.cfg.ContentRoute != "" {
		prefix := s.cfg.ContentRoute + "/"
		s.mux.Handle(prefix, http.StripPrefix(prefix, artifactFiles(s.cfg.ContentDir)))
	}

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

// track counts the request as in flight until the handler returns.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		end := s.lifecycle.Begin()
		defer end()
		next.ServeHTTP(w, r)
	})
}

// artifactFiles serves published audio files without directory listings.
func artifactFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			handlers.NotFoundHandler{}.ServeHTTP(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// routeLabel maps a request onto a bounded set of metric labels.
func (s *Server) routeLabel(r *http.Request) string {
	p := r.URL.Path
	switch p {
	case "/healthz", "/readyz", "/metrics", "/transcribe", "/onsei/", "/converse", "/audio/", "/upload-audio/":
		return p
	}
	if s.cfg.ContentRoute != "" && strings.HasPrefix(p, s.cfg.ContentRoute+"/") {
		return s.cfg.ContentRoute + "/"
	}
	return "other"
}

// SetDraining makes /readyz fail so load balancers stop routing new turns.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// InFlight reports how many transcribe or converse requests are running.
func (s *Server) InFlight() int64 {
	return s.lifecycle.InFlight()
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.RateLimit(s.cfg, s.limiter, h)
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.Instrument(s.metrics, s.routeLabel, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
