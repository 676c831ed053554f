package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the optional YAML file that replaces the built-in counselor.
//
//	system_prompt: |
//	  You are a calm sleep coach...
//	voice: nova
//	language: en
//	history_window: 6
type Persona struct {
	SystemPrompt  string `yaml:"system_prompt"`
	Voice         string `yaml:"voice"`
	Language      string `yaml:"language"`
	HistoryWindow int    `yaml:"history_window"`
}

func LoadPersona(file string) (Persona, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona: %w", err)
	}
	var p Persona
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Persona{}, fmt.Errorf("parse persona: %w", err)
	}
	return p, nil
}

// apply overrides built-in defaults. Variables set explicitly in the
// environment keep precedence.
func (p Persona) apply(cfg *Config) {
	if s := strings.TrimSpace(p.SystemPrompt); s != "" {
		cfg.SystemPrompt = s
	}
	if p.Voice != "" && os.Getenv("VAI_TALK_TTS_VOICE") == "" {
		cfg.TTSVoice = p.Voice
	}
	if p.Language != "" && os.Getenv("VAI_TALK_STT_LANGUAGE") == "" {
		cfg.STTLanguage = p.Language
	}
	if p.HistoryWindow != 0 && os.Getenv("VAI_TALK_HISTORY_WINDOW") == "" {
		cfg.HistoryWindow = p.HistoryWindow
	}
}
