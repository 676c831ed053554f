package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/pipeline"
	"github.com/vango-go/vai-talk/pkg/gateway/config"
)

type fakeTurns struct {
	gotInput    pipeline.Input
	gotAudio    []byte
	gotFilename string

	result *pipeline.Result
	text   string
	err    error
}

func (f *fakeTurns) Converse(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	f.gotInput = in
	if in.Audio != nil {
		f.gotAudio, _ = io.ReadAll(in.Audio)
		f.gotFilename = in.Filename
	}
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	if res.SessionID == "" {
		res.SessionID = in.SessionID
	}
	return &res, nil
}

func (f *fakeTurns) Transcribe(ctx context.Context, requestID string, audio io.Reader, filename string) (string, error) {
	f.gotAudio, _ = io.ReadAll(audio)
	f.gotFilename = filename
	return f.text, f.err
}

func testConfig() config.Config {
	return config.Config{
		MaxBodyBytes:   1 << 10,
		MaxAudioBytes:  1 << 12,
		HandlerTimeout: time.Minute,
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mwr := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mwr.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mwr.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(audio)
	}
	if err := mwr.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mwr.FormDataContentType()
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestConverseHandler_TextTurn(t *testing.T) {
	turns := &fakeTurns{result: &pipeline.Result{
		Text:     "That sounds hard. When do you feel it most?",
		AudioURL: "/voice/response_20260101T000000_x.mp3",
	}}
	h := ConverseHandler{Config: testConfig(), Turns: turns}

	req := httptest.NewRequest(http.MethodPost, "/converse", strings.NewReader(`{"session_id":"s1","message":"I feel tired"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if turns.gotInput.SessionID != "s1" || turns.gotInput.Message != "I feel tired" || turns.gotInput.Audio != nil {
		t.Fatalf("input=%+v", turns.gotInput)
	}
	resp := decodeBody(t, rr)
	if resp["text"] != "That sounds hard. When do you feel it most?" || resp["session_id"] != "s1" {
		t.Fatalf("body=%s", rr.Body.String())
	}
	if resp["audio_url"] != "/voice/response_20260101T000000_x.mp3" {
		t.Fatalf("audio_url=%v", resp["audio_url"])
	}
	if _, ok := resp["transcribed_text"]; ok {
		t.Fatalf("text turn should not carry transcribed_text: %s", rr.Body.String())
	}
}

func TestConverseHandler_MultipartAudioTurn(t *testing.T) {
	turns := &fakeTurns{result: &pipeline.Result{Text: "reply", AudioURL: "/voice/a.mp3", TranscribedText: "hello"}}
	h := ConverseHandler{Config: testConfig(), Turns: turns}

	body, ct := multipartBody(t, map[string]string{"session_id": "s2"}, "rec.webm", []byte("audio-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/converse", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if turns.gotInput.SessionID != "s2" || string(turns.gotAudio) != "audio-bytes" || turns.gotFilename != "rec.webm" {
		t.Fatalf("input=%+v audio=%q filename=%q", turns.gotInput, turns.gotAudio, turns.gotFilename)
	}
	resp := decodeBody(t, rr)
	if resp["transcribed_text"] != "hello" {
		t.Fatalf("body=%s", rr.Body.String())
	}
	if _, ok := resp["ai_response"]; ok {
		t.Fatalf("ai_response is only set by the legacy upload endpoint")
	}
}

func TestConverseHandler_LegacyUploadCarriesAIResponse(t *testing.T) {
	turns := &fakeTurns{result: &pipeline.Result{Text: "reply", AudioURL: "/voice/a.mp3", TranscribedText: "hello"}}
	h := ConverseHandler{Config: testConfig(), Turns: turns, Mode: ConverseAudio}

	body, ct := multipartBody(t, nil, "rec.wav", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload-audio/", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if resp := decodeBody(t, rr); resp["ai_response"] != "reply" {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestConverseHandler_RawAudioBody(t *testing.T) {
	turns := &fakeTurns{result: &pipeline.Result{Text: "reply"}}
	h := ConverseHandler{Config: testConfig(), Turns: turns}

	req := httptest.NewRequest(http.MethodPost, "/converse?session_id=s3", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "audio/mpeg")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if turns.gotInput.SessionID != "s3" || turns.gotFilename != "upload.mp3" || string(turns.gotAudio) != "raw" {
		t.Fatalf("input=%+v filename=%q", turns.gotInput, turns.gotFilename)
	}
}

func TestConverseHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty message", core.NewStageError(core.StageValidate, core.KindEmptyMessage, errors.New("empty")), 400, "empty_message"},
		{"no speech", core.NewStageError(core.StageTranscribe, core.KindNoSpeech, errors.New("silence")), 422, "no_speech_detected"},
		{"generation", core.NewStageError(core.StageChat, core.KindGenerationFailed, errors.New("boom")), 500, "generation_failed"},
		{"synthesis", core.NewStageError(core.StageTTS, core.KindSynthesisFailed, errors.New("boom")), 500, "synthesis_failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{err: tc.err}}
			req := httptest.NewRequest(http.MethodPost, "/converse", strings.NewReader(`{"session_id":"s1","message":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
			}
			if resp := decodeBody(t, rr); resp["code"] != tc.code {
				t.Fatalf("body=%s", rr.Body.String())
			}
		})
	}
}

func TestConverseHandler_BodyTooLarge_413(t *testing.T) {
	h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{result: &pipeline.Result{}}}
	big := `{"session_id":"s1","message":"` + strings.Repeat("a", 2<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/converse", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestConverseHandler_InvalidJSON_400(t *testing.T) {
	h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{result: &pipeline.Result{}}}
	req := httptest.NewRequest(http.MethodPost, "/converse", strings.NewReader(`{"message":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestConverseHandler_UnsupportedMediaType_415(t *testing.T) {
	cases := []struct {
		mode        ConverseMode
		contentType string
	}{
		{ConverseAny, "text/plain"},
		{ConverseText, "audio/wav"},
		{ConverseAny, ""},
		{ConverseAudio, ""},
	}
	for _, tc := range cases {
		h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{result: &pipeline.Result{}}, Mode: tc.mode}
		req := httptest.NewRequest(http.MethodPost, "/converse", strings.NewReader(`{"message":"hello"}`))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("mode=%d content-type=%s status=%d body=%q", tc.mode, tc.contentType, rr.Code, rr.Body.String())
		}
	}
}

func TestConverseHandler_MultipartMissingFile_400(t *testing.T) {
	h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{result: &pipeline.Result{}}}
	body, ct := multipartBody(t, map[string]string{"session_id": "s1"}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/converse", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if resp := decodeBody(t, rr); resp["param"] != "file" {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestConverseHandler_MethodNotAllowed(t *testing.T) {
	h := ConverseHandler{Config: testConfig(), Turns: &fakeTurns{}}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/converse", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}
