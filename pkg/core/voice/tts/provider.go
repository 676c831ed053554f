// Package tts provides text-to-speech functionality.
package tts

import "context"

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to one complete audio payload.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Model      string  // Provider-specific model
	Voice      string  // Voice identifier
	Speed      float64 // Speed multiplier (default 1.0)
	Language   string  // Language code
	Format     string  // Output format: "mp3" or "wav"
	SampleRate int     // Sample rate, provider default when zero
}

// Synthesis is the result of synthesis.
type Synthesis struct {
	Audio  []byte // Audio data
	Format string // Audio format, also the artifact extension
}
