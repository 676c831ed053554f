package tts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core"
)

// ErrEmptyText is wrapped when there is nothing to speak.
var ErrEmptyText = errors.New("empty text")

// Adapter synthesizes a reply and publishes it through an ArtifactStore.
type Adapter struct {
	Provider Provider
	Options  SynthesizeOptions
	Store    *ArtifactStore
	Logger   *slog.Logger
}

// Synthesize returns the published artifact for text. Empty text fails
// without calling the provider. Every failure is a tts-stage StageError of
// kind synthesis_failed.
func (a *Adapter) Synthesize(ctx context.Context, text string) (Artifact, error) {
	art, err := a.synthesize(ctx, text)
	if err != nil {
		a.logger().Warn("synthesis failed", "provider", a.Provider.Name(), "error", err)
		return Artifact{}, core.NewStageError(core.StageTTS, core.KindSynthesisFailed, err)
	}
	return art, nil
}

func (a *Adapter) synthesize(ctx context.Context, text string) (Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return Artifact{}, ErrEmptyText
	}
	syn, err := a.Provider.Synthesize(ctx, text, a.Options)
	if err != nil {
		return Artifact{}, err
	}
	return a.Store.Save(syn.Audio, syn.Format)
}

func (a *Adapter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
