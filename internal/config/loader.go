package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "whisper-native", "mock"},
	"tts": {"piper"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Fields absent from the document keep their [Default] values.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio format
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels <= 0 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be positive", cfg.Audio.Channels))
	}
	if cfg.Audio.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d must be positive", cfg.Audio.FramesPerBuffer))
	}

	// Capture
	if cfg.Capture.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("capture.max_duration %s must be positive", cfg.Capture.MaxDuration))
	}

	// Scoring band order
	if err := cfg.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}

	// Validation window coherence
	if cfg.Validation.MinDuration < 0 {
		errs = append(errs, fmt.Errorf("validation.min_duration %s must not be negative", cfg.Validation.MinDuration))
	}
	if cfg.Validation.RequiredSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("validation.required_sample_rate %d must be positive", cfg.Validation.RequiredSampleRate))
	}
	if cfg.Validation.RequiredSampleRate > 0 && cfg.Audio.SampleRate > 0 &&
		cfg.Validation.RequiredSampleRate != cfg.Audio.SampleRate {
		slog.Warn("validation.required_sample_rate differs from audio.sample_rate; every capture will fail validation",
			"validation", cfg.Validation.RequiredSampleRate,
			"audio", cfg.Audio.SampleRate,
		)
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Provider-specific requirements
	switch cfg.Providers.STT.Name {
	case "whisper":
		if cfg.Providers.STT.BaseURL == "" {
			errs = append(errs, errors.New("providers.stt.base_url is required when name is whisper"))
		}
	case "whisper-native":
		if cfg.Providers.STT.ModelPath == "" {
			errs = append(errs, errors.New("providers.stt.model_path is required when name is whisper-native"))
		}
	}

	if cfg.Providers.TTS.Name == "piper" && cfg.Providers.TTS.Binary == "" {
		slog.Warn("providers.tts.binary is empty; speech playback of practice sentences will be unavailable")
	}
	if cfg.Providers.TTS.DefaultVoice != "" {
		if _, ok := cfg.Providers.TTS.Voices[cfg.Providers.TTS.DefaultVoice]; !ok {
			errs = append(errs, fmt.Errorf("providers.tts.default_voice %q is not listed in providers.tts.voices", cfg.Providers.TTS.DefaultVoice))
		}
	}

	// Storage
	if cfg.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if cfg.Storage.RecordingsDir == "" {
		errs = append(errs, errors.New("storage.recordings_dir is required"))
	}
	if cfg.Storage.HistoryCap < 0 {
		errs = append(errs, fmt.Errorf("storage.history_cap %d must not be negative", cfg.Storage.HistoryCap))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
