// Package tts defines the Synthesizer interface for text-to-speech backends.
//
// A synthesizer works in batch mode: it receives a prompt sentence and
// returns the rendered audio in one call. Prompts are short and rendered
// ahead of playback, so there is no streaming surface.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"time"
)

// Voice identifies a synthesis voice offered by a backend.
type Voice struct {
	// ID is the backend-specific voice identifier (e.g., "female", "male").
	ID string

	// Name is the human-readable voice name.
	Name string
}

// Clip is rendered audio: 16-bit PCM samples ready for playback or encoding.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(float64(frames) / float64(c.SampleRate) * float64(time.Second))
}

// Synthesizer renders prompt text to audio.
type Synthesizer interface {
	// Synthesize renders text with the given voice. An empty voiceID selects
	// the backend's default voice. A non-nil error means the engine failed;
	// a successful call always returns a non-empty clip.
	Synthesize(ctx context.Context, text, voiceID string) (Clip, error)

	// Voices returns the voices this backend offers.
	Voices(ctx context.Context) ([]Voice, error)
}
