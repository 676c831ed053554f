package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core"
)

// ErrNoSpeech is wrapped when the provider returns an empty transcript.
var ErrNoSpeech = errors.New("no speech detected")

// Adapter turns an uploaded recording into text. It spools the upload to a
// temporary file, hands that file to the provider and always removes it.
type Adapter struct {
	Provider Provider
	Options  TranscribeOptions
	// UploadDir receives the temporary file. Empty means os.TempDir().
	UploadDir string
	Logger    *slog.Logger
}

// Transcribe returns the trimmed transcript of audio. filename only supplies
// the extension. Every failure, including an empty transcript, is reported
// as a transcribe-stage StageError of kind no_speech_detected.
func (a *Adapter) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	text, err := a.transcribe(ctx, audio, filename)
	if err != nil {
		a.logger().Warn("transcription failed",
			"provider", a.Provider.Name(),
			"filename", filename,
			"error", err,
		)
		return "", core.NewStageError(core.StageTranscribe, core.KindNoSpeech, err)
	}
	return text, nil
}

func (a *Adapter) transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if audio == nil {
		return "", errors.New("no audio provided")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(a.UploadDir, "upload_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			a.logger().Warn("remove temp upload", "path", f.Name(), "error", rmErr)
		}
	}()

	n, err := io.Copy(f, audio)
	if err != nil {
		return "", fmt.Errorf("spool upload: %w", err)
	}
	if n == 0 {
		return "", errors.New("empty audio upload")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	opts := a.Options
	if opts.Format == "" {
		opts.Format = strings.TrimPrefix(ext, ".")
	}
	tr, err := a.Provider.Transcribe(ctx, f, opts)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (a *Adapter) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
