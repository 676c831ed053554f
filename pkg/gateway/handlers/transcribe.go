package handlers

import (
	"context"
	"net/http"

	"github.com/vango-go/vai-talk/pkg/gateway/config"
	"github.com/vango-go/vai-talk/pkg/gateway/mw"
)

// TranscribeHandler serves POST /transcribe: audio in, text out.
type TranscribeHandler struct {
	Config config.Config
	Turns  TurnRunner
}

type transcribeResponse struct {
	TranscribedText string `json:"transcribed_text"`
}

func (h TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())

	up, err := readUpload(w, r, h.Config.MaxAudioBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer up.Close()

	ctx := r.Context()
	if h.Config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Config.HandlerTimeout)
		defer cancel()
	}

	text, err := h.Turns.Transcribe(ctx, reqID, up.Audio, up.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{TranscribedText: text})
}
