package handlers

import (
	"net/http"
	"os"

	"github.com/vango-go/vai-talk/pkg/gateway/config"
	"github.com/vango-go/vai-talk/pkg/gateway/lifecycle"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports 503 while the process drains and 500 when the
// configuration it was built with cannot serve turns.
type ReadyHandler struct {
	Config    config.Config
	Lifecycle *lifecycle.Lifecycle
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool     `json:"ok"`
		Draining      bool     `json:"draining,omitempty"`
		InFlight      int64    `json:"in_flight"`
		ChatProvider  string   `json:"chat_provider"`
		VoiceProvider string   `json:"voice_provider"`
		LimitsEnabled bool     `json:"limits_enabled"`
		Issues        []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Config.MaxBodyBytes <= 0 || h.Config.MaxAudioBytes <= 0 {
		issues = append(issues, "body limits must be > 0")
	}
	if h.Config.HistoryWindow < 1 {
		issues = append(issues, "history window must be >= 1")
	}
	if h.Config.STTTimeout <= 0 || h.Config.ChatTimeout <= 0 || h.Config.TTSTimeout <= 0 {
		issues = append(issues, "stage timeouts must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ReadTimeout <= 0 || h.Config.HandlerTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}
	if fi, err := os.Stat(h.Config.ContentDir); err != nil || !fi.IsDir() {
		issues = append(issues, "content directory is not available")
	}

	limitsEnabled := (h.Config.LimitRPS > 0 && h.Config.LimitBurst > 0) ||
		h.Config.LimitMaxConcurrentRequests > 0
	draining := h.Lifecycle.IsDraining()

	ok := len(issues) == 0 && !draining
	status := http.StatusOK
	switch {
	case draining:
		status = http.StatusServiceUnavailable
	case !ok:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, readyResp{
		OK:            ok,
		Draining:      draining,
		InFlight:      h.Lifecycle.InFlight(),
		ChatProvider:  string(h.Config.ChatProvider),
		VoiceProvider: string(h.Config.VoiceProvider),
		LimitsEnabled: limitsEnabled,
		Issues:        issues,
	})
}
