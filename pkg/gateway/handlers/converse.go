package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/pipeline"
	"github.com/vango-go/vai-talk/pkg/gateway/apierror"
	"github.com/vango-go/vai-talk/pkg/gateway/config"
	"github.com/vango-go/vai-talk/pkg/gateway/mw"
)

// ConverseMode restricts which request bodies a ConverseHandler accepts.
type ConverseMode int

const (
	// ConverseAny accepts JSON text turns and audio uploads.
	ConverseAny ConverseMode = iota
	// ConverseText accepts only JSON text turns.
	ConverseText
	// ConverseAudio accepts only audio uploads.
	ConverseAudio
)

// ConverseHandler serves one conversational turn.
type ConverseHandler struct {
	Config config.Config
	Turns  TurnRunner
	Mode   ConverseMode
}

type converseRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type converseResponse struct {
	Text            string `json:"text"`
	AudioURL        string `json:"audio_url"`
	SessionID       string `json:"session_id"`
	TranscribedText string `json:"transcribed_text,omitempty"`
	// AIResponse mirrors Text for callers of the legacy upload endpoint.
	AIResponse string `json:"ai_response,omitempty"`
}

func (h ConverseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	reqID, _ := mw.RequestIDFrom(r.Context())

	in := pipeline.Input{RequestID: reqID}
	if h.wantsJSON(r) {
		req, err := h.decodeJSON(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.SessionID = strings.TrimSpace(req.SessionID)
		in.Message = req.Message
	} else {
		if h.Mode == ConverseText {
			writeError(w, r, unsupportedMediaType())
			return
		}
		up, err := readUpload(w, r, h.Config.MaxAudioBytes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer up.Close()
		in.SessionID = up.SessionID
		in.Audio = up.Audio
		in.Filename = up.Filename
	}

	ctx := r.Context()
	if h.Config.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Config.HandlerTimeout)
		defer cancel()
	}

	res, err := h.Turns.Converse(ctx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := converseResponse{
		Text:            res.Text,
		AudioURL:        res.AudioURL,
		SessionID:       res.SessionID,
		TranscribedText: res.TranscribedText,
	}
	if h.Mode == ConverseAudio {
		resp.AIResponse = res.Text
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ConverseHandler) wantsJSON(r *http.Request) bool {
	if h.Mode == ConverseAudio {
		return false
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func (h ConverseHandler) decodeJSON(w http.ResponseWriter, r *http.Request) (converseRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return converseRequest{}, err
		}
		return converseRequest{}, core.NewInvalidRequestError("failed to read request body")
	}

	var req converseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return converseRequest{}, core.NewInvalidRequestError("invalid JSON body")
	}
	return req, nil
}

func unsupportedMediaType() *core.Error {
	return &core.Error{
		Type:    core.ErrInvalidRequest,
		Message: "unsupported content type",
		Code:    apierror.CodeUnsupportedMediaType,
		Param:   "Content-Type",
	}
}
