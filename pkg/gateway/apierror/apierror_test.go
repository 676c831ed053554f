package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/vango-go/vai-talk/pkg/core"
)

func TestFromError_ContextCanceled_Is408Cancelled(t *testing.T) {
	env, status := FromError(context.Canceled, "req_test")
	if status != 408 {
		t.Fatalf("status=%d", status)
	}
	if env.Type != core.ErrAPI {
		t.Fatalf("type=%q", env.Type)
	}
	if env.Code != "cancelled" {
		t.Fatalf("code=%q", env.Code)
	}
	if env.RequestID != "req_test" {
		t.Fatalf("request_id=%q", env.RequestID)
	}
}

func TestFromError_StageFailures(t *testing.T) {
	cases := []struct {
		stage  core.Stage
		kind   core.FailureKind
		status int
		typ    core.ErrorType
	}{
		{core.StageValidate, core.KindEmptyMessage, 400, core.ErrInvalidRequest},
		{core.StageTranscribe, core.KindNoSpeech, 422, core.ErrTranscription},
		{core.StageChat, core.KindGenerationFailed, 500, core.ErrGeneration},
		{core.StageTTS, core.KindSynthesisFailed, 500, core.ErrSynthesis},
	}

	for _, tc := range cases {
		cause := errors.New("upstream said: secret-token-123")
		err := fmt.Errorf("wrapped: %w", core.NewStageError(tc.stage, tc.kind, cause))

		env, status := FromError(err, "req_1")
		if status != tc.status {
			t.Fatalf("%s: status=%d, want %d", tc.kind, status, tc.status)
		}
		if env.Type != tc.typ || env.Stage != tc.stage || env.Code != string(tc.kind) {
			t.Fatalf("%s: envelope=%#v", tc.kind, env)
		}
		if strings.Contains(env.Error, "secret") {
			t.Fatalf("%s: cause leaked into %q", tc.kind, env.Error)
		}
	}
}

func TestFromError_StageTimeoutKeepsStageMapping(t *testing.T) {
	err := core.NewStageError(core.StageChat, core.KindGenerationFailed, context.DeadlineExceeded)
	_, status := FromError(err, "")
	if status != 500 {
		t.Fatalf("status=%d, want 500", status)
	}
}

func TestFromError_BodyTooLarge_Is413(t *testing.T) {
	env, status := FromError(fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), "req")
	if status != 413 {
		t.Fatalf("status=%d", status)
	}
	if env.Type != core.ErrInvalidRequest {
		t.Fatalf("type=%q", env.Type)
	}
}

func TestFromError_UnsupportedMediaType_Is415(t *testing.T) {
	_, status := FromError(&core.Error{Type: core.ErrInvalidRequest, Message: "bad", Code: CodeUnsupportedMediaType}, "req")
	if status != 415 {
		t.Fatalf("status=%d", status)
	}
}

func TestFromError_UnknownErrorDoesNotLeak(t *testing.T) {
	env, status := FromError(errors.New("dial tcp 10.0.0.1: refused"), "req")
	if status != 500 {
		t.Fatalf("status=%d", status)
	}
	if env.Error != "internal error" {
		t.Fatalf("error=%q", env.Error)
	}
}

func TestFromError_CanonicalConstructors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    core.ErrorType
	}{
		{core.NewRateLimitError("rate limit exceeded"), 429, core.ErrRateLimit},
		{core.NewAPIError("internal error"), 500, core.ErrAPI},
	}
	for _, tc := range cases {
		env, status := FromError(tc.err, "req")
		if status != tc.status {
			t.Fatalf("%v: status=%d", tc.err, status)
		}
		if env.Type != tc.typ || env.RequestID != "req" {
			t.Fatalf("%v: envelope=%+v", tc.err, env)
		}
	}
}
