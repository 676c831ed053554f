package core

import (
	"errors"
	"fmt"
)

// Error represents an API error.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrTranscription  ErrorType = "transcription_error"
	ErrGeneration     ErrorType = "generation_error"
	ErrSynthesis      ErrorType = "synthesis_error"
	ErrConfiguration  ErrorType = "configuration_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string) *Error {
	return &Error{
		Type:    ErrRateLimit,
		Message: message,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// NewConfigurationError reports a startup configuration problem.
func NewConfigurationError(message string) *Error {
	return &Error{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// Stage names one step of a conversational turn.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageTranscribe Stage = "transcribe"
	StageChat       Stage = "chat"
	StageTTS        Stage = "tts"
)

// FailureKind is the reason a stage failed.
type FailureKind string

const (
	KindEmptyMessage     FailureKind = "empty_message"
	KindNoSpeech         FailureKind = "no_speech_detected"
	KindGenerationFailed FailureKind = "generation_failed"
	KindSynthesisFailed  FailureKind = "synthesis_failed"
)

// StageError is the failure outcome of one pipeline stage. Adapters return it
// instead of raw transport errors; Err keeps the underlying cause for logs.
type StageError struct {
	Stage Stage
	Kind  FailureKind
	Err   error
}

// NewStageError wraps cause as a failure of stage.
func NewStageError(stage Stage, kind FailureKind, cause error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: cause}
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Type maps the failure kind onto the public error taxonomy.
func (e *StageError) Type() ErrorType {
	switch e.Kind {
	case KindEmptyMessage:
		return ErrInvalidRequest
	case KindNoSpeech:
		return ErrTranscription
	case KindGenerationFailed:
		return ErrGeneration
	case KindSynthesisFailed:
		return ErrSynthesis
	default:
		return ErrAPI
	}
}

// StageFailure extracts a *StageError from err.
func StageFailure(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) && se != nil {
		return se, true
	}
	return nil, false
}
