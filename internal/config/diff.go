package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything
// touching providers, audio format or storage needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ScoringChanged    bool
	ValidationChanged bool

	CaptureChanged bool

	DefaultVoiceChanged bool
	NewDefaultVoice     string
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.ScoringChanged || d.ValidationChanged ||
		d.CaptureChanged || d.DefaultVoiceChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Scoring != new.Scoring {
		d.ScoringChanged = true
	}

	if old.Validation != new.Validation {
		d.ValidationChanged = true
	}

	if old.Capture != new.Capture {
		d.CaptureChanged = true
	}

	if old.Providers.TTS.DefaultVoice != new.Providers.TTS.DefaultVoice {
		d.DefaultVoiceChanged = true
		d.NewDefaultVoice = new.Providers.TTS.DefaultVoice
	}

	return d
}
