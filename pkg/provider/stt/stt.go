// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber works in batch mode: it receives the path of a finished WAV
// recording and returns the recognized text in one call. The scoring pipeline
// never streams audio to a transcriber — recordings are short (seconds) and
// the artifact on disk is the unit of work.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// Result is the outcome of one successful transcription.
type Result struct {
	// Text is the recognized speech, whitespace-trimmed. Empty text is a
	// valid result: a silent or unintelligible recording transcribes to
	// nothing and must not be treated as a failure.
	Text string

	// Language is the language the backend recognized against, when known.
	Language string

	// Elapsed is the inference wall time.
	Elapsed time.Duration
}

// Transcriber turns a finished recording into text.
//
// A non-nil error means the engine itself failed (backend unreachable,
// model error, unreadable file); it never means "nothing was said".
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// Pinger is implemented by transcribers that can probe their backend without
// running an inference. Health checks use it when available.
type Pinger interface {
	Ping(ctx context.Context) error
}
