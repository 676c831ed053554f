package handlers

import (
	"context"
	"io"

	"github.com/vango-go/vai-talk/pkg/core/pipeline"
)

// TurnRunner is the part of pipeline.Orchestrator the handlers use.
type TurnRunner interface {
	Converse(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Transcribe(ctx context.Context, requestID string, audio io.Reader, filename string) (string, error)
}
