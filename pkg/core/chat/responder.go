// Package chat builds prompts and obtains assembled replies from chat models.
package chat

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/types"
)

// Responder returns one complete reply for a prompt.
//
// Failures are reported as *core.StageError with KindGenerationFailed; an
// empty reply is never returned with a nil error.
type Responder interface {
	Name() string
	Reply(ctx context.Context, msgs []types.Message) (string, error)
}

var (
	// ErrEmptyStream is reported when a stream finishes without content.
	ErrEmptyStream = errors.New("stream ended without content")
	// ErrTruncatedStream is reported when a stream ends before the model
	// signals completion.
	ErrTruncatedStream = errors.New("stream ended before completion")
)

// Assemble concatenates every chunk of a reply stream with no separator. A
// stream error, or a stream that yields no non-empty chunk, discards whatever
// was buffered and returns a generation failure.
func Assemble(chunks iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	n := 0
	for chunk, err := range chunks {
		if err != nil {
			return "", generationFailed(err)
		}
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		n++
	}
	if n == 0 {
		return "", generationFailed(ErrEmptyStream)
	}
	return b.String(), nil
}

func generationFailed(cause error) error {
	return core.NewStageError(core.StageChat, core.KindGenerationFailed, cause)
}
