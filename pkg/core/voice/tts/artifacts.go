package tts

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact is a synthesized audio file published under the content route.
type Artifact struct {
	Name string // file name inside the content directory
	Path string // filesystem path
	URL  string // public relative URL, e.g. /voice/response_....mp3
}

// ArtifactStore writes audio files into a directory served at URLPrefix.
type ArtifactStore struct {
	Dir       string
	URLPrefix string
	// Now is overridable in tests.
	Now func() time.Time
}

// NewArtifactStore creates dir when missing.
func NewArtifactStore(dir, urlPrefix string) (*ArtifactStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &ArtifactStore{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/"), Now: time.Now}, nil
}

// Save publishes audio as response_<UTC timestamp>_<uuid>.<ext>. The file
// only becomes visible under its final name once fully written, and Save
// verifies it exists before returning its URL.
func (s *ArtifactStore) Save(audio []byte, ext string) (Artifact, error) {
	if len(audio) == 0 {
		return Artifact{}, errors.New("empty audio")
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := fmt.Sprintf("response_%s_%s.%s", now().UTC().Format("20060102T150405"), uuid.NewString(), ext)
	final := filepath.Join(s.Dir, name)

	tmp, err := os.CreateTemp(s.Dir, ".partial_*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Artifact{}, fmt.Errorf("verify artifact: %w", err)
	}
	if info.Size() != int64(len(audio)) {
		return Artifact{}, fmt.Errorf("verify artifact: size %d, want %d", info.Size(), len(audio))
	}

	return Artifact{
		Name: name,
		Path: final,
		URL:  path.Join(s.URLPrefix, name),
	}, nil
}
