// Package config defines the application configuration schema and loading.
//
// Configuration is read from a single YAML file. Unknown fields are
// rejected so typos surface at startup instead of silently falling back
// to defaults.
package config

import (
	"log/slog"
	"time"

	"github.com/mwathi/elocute/internal/score"
	"github.com/mwathi/elocute/internal/validate"
)

// LogLevel is a string log level as it appears in the config file.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether the level is one of the known values.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// Level maps the config value onto a slog.Level. Unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	Capture    CaptureConfig    `yaml:"capture"`
	Validation validate.Limits  `yaml:"validation"`
	Scoring    score.Thresholds `yaml:"scoring"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig holds the HTTP listener and logging settings.
type ServerConfig struct {
	// ListenAddr is the address for the health/metrics endpoint,
	// e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture format and input device.
type AudioConfig struct {
	// InputDevice selects the input device by substring match.
	// Empty means the system default.
	InputDevice string `yaml:"input_device"`

	SampleRate      int `yaml:"sample_rate"`
	Channels        int `yaml:"channels"`
	FramesPerBuffer int `yaml:"frames_per_buffer"`
}

// CaptureConfig bounds a single recording session.
type CaptureConfig struct {
	// MaxDuration is the hard cap on a single recording. The watchdog
	// stops the session when it is reached.
	MaxDuration time.Duration `yaml:"max_duration"`
}

// ProvidersConfig selects the speech providers.
type ProvidersConfig struct {
	STT STTConfig `yaml:"stt"`
	TTS TTSConfig `yaml:"tts"`
}

// STTConfig configures the transcription provider.
type STTConfig struct {
	// Name selects the implementation: "whisper" (HTTP server),
	// "whisper-native" (in-process bindings) or "mock".
	Name string `yaml:"name"`

	// BaseURL is the whisper server URL (whisper only).
	BaseURL string `yaml:"base_url"`

	// Model is the model hint sent to the server (whisper only).
	Model string `yaml:"model"`

	// ModelPath is the GGML model file (whisper-native only).
	ModelPath string `yaml:"model_path"`

	Language string `yaml:"language"`
}

// TTSConfig configures the speech synthesis provider.
type TTSConfig struct {
	// Name selects the implementation; "piper" is the only one today.
	Name string `yaml:"name"`

	// Binary is the piper executable path.
	Binary string `yaml:"binary"`

	// Voices maps voice IDs to model file paths.
	Voices map[string]string `yaml:"voices"`

	DefaultVoice string `yaml:"default_voice"`

	// CacheDir enables on-disk caching of synthesized clips when set.
	CacheDir string `yaml:"cache_dir"`
}

// StorageConfig holds the database and artifact locations.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`
	RecordingsDir string `yaml:"recordings_dir"`

	// SentenceLibrary is an optional JSON file of practice sentences.
	// Empty means the built-in library.
	SentenceLibrary string `yaml:"sentence_library"`

	// HistoryCap bounds stored attempts per user. Zero means unlimited.
	HistoryCap int `yaml:"history_cap"`
}

// Default returns a configuration with sensible defaults. Loading a file
// overlays onto this, so absent fields keep these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogLevelInfo,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			FramesPerBuffer: 512,
		},
		Capture: CaptureConfig{
			MaxDuration: 30 * time.Second,
		},
		Validation: validate.DefaultLimits(),
		Scoring:    score.DefaultThresholds(),
		Providers: ProvidersConfig{
			STT: STTConfig{
				Name:     "whisper",
				BaseURL:  "http://localhost:8090",
				Language: "en",
			},
			TTS: TTSConfig{
				Name: "piper",
			},
		},
		Storage: StorageConfig{
			DBPath:        "elocute.db",
			RecordingsDir: "recordings",
			HistoryCap:    500,
		},
	}
}
