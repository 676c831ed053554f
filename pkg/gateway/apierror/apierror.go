package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-go/vai-talk/pkg/core"
)

// CodeUnsupportedMediaType marks request bodies with a content type the
// endpoint does not accept.
const CodeUnsupportedMediaType = "unsupported_media_type"

// Envelope is the JSON body of every error response.
type Envelope struct {
	Error     string         `json:"error"`
	Type      core.ErrorType `json:"type"`
	Stage     core.Stage     `json:"stage,omitempty"`
	Code      string         `json:"code,omitempty"`
	Param     string         `json:"param,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// FromError maps err onto one user-visible message and status. Causes
// wrapped inside stage failures are never exposed.
func FromError(err error, requestID string) (*Envelope, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	if se, ok := core.StageFailure(err); ok {
		return &Envelope{
			Error:     stageMessage(se.Kind),
			Type:      se.Type(),
			Stage:     se.Stage,
			Code:      string(se.Kind),
			RequestID: requestID,
		}, stageStatus(se.Kind)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &Envelope{
			Error:     "request body too large",
			Type:      core.ErrInvalidRequest,
			Code:      "body_too_large",
			RequestID: requestID,
		}, http.StatusRequestEntityTooLarge
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &Envelope{
			Error:     "request timeout",
			Type:      core.ErrAPI,
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &Envelope{
			Error:     "request cancelled",
			Type:      core.ErrAPI,
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		status := statusFromType(coreErr.Type)
		if coreErr.Code == CodeUnsupportedMediaType {
			status = http.StatusUnsupportedMediaType
		}
		return &Envelope{
			Error:     coreErr.Message,
			Type:      coreErr.Type,
			Code:      coreErr.Code,
			Param:     coreErr.Param,
			RequestID: requestID,
		}, status
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	return &Envelope{
		Error:     "internal error",
		Type:      core.ErrAPI,
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func stageMessage(kind core.FailureKind) string {
	switch kind {
	case core.KindEmptyMessage:
		return "message must not be empty"
	case core.KindNoSpeech:
		return "no speech detected"
	case core.KindGenerationFailed:
		return "failed to generate a reply"
	case core.KindSynthesisFailed:
		return "failed to synthesize speech"
	default:
		return "internal error"
	}
}

func stageStatus(kind core.FailureKind) int {
	switch kind {
	case core.KindEmptyMessage:
		return http.StatusBadRequest
	case core.KindNoSpeech:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrRateLimit:
		return http.StatusTooManyRequests
	case core.ErrTranscription:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
