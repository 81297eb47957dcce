// Package audio defines the interfaces and types for microphone and speaker
// connectivity within Elocute.
//
// The three primary abstractions are:
//
//   - [Resolver] — enumerates input devices and resolves one by name.
//   - [Backend] — opens a capture [Stream] on a resolved device.
//   - [Player] — plays a PCM buffer through the default output device.
//
// Implementations are provided by hardware-specific adapter packages (e.g.
// audio/portaudio). The interfaces are intentionally narrow so the capture
// state machine stays decoupled from the concrete audio host API, and so
// tests can drive the state machine with scripted streams (see audio/mock).
//
// This package lives under pkg/ because external code (alternative hardware
// adapters) is expected to implement these interfaces.
package audio

import "context"

// Device describes one audio input device as reported by the host API.
type Device struct {
	// ID is the host-API index of the device. Valid only until the next
	// enumeration — hardware may be hot-plugged at any time, which is why
	// the capture pipeline re-resolves devices every session instead of
	// caching handles.
	ID int

	// Name is the human-readable device name used for resolution.
	Name string

	// MaxInputChannels is the number of input channels the device supports.
	MaxInputChannels int

	// DefaultSampleRate is the device's preferred sample rate in Hz.
	DefaultSampleRate float64

	// IsDefault marks the host's default input device.
	IsDefault bool
}

// Format describes the PCM layout of a capture stream.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels (1 = mono).
	Channels int

	// FramesPerBuffer is the number of frames delivered per Stream.Read.
	FramesPerBuffer int
}

// Resolver enumerates and resolves input devices. Implementations must probe
// the hardware on every call — never return memoised results — because the
// device set changes under hot-plugging.
type Resolver interface {
	// Devices lists the currently available input devices.
	Devices(ctx context.Context) ([]Device, error)

	// Resolve returns the input device matching name, or the host default
	// when name is empty. Returns an error when no usable device exists.
	Resolve(ctx context.Context, name string) (Device, error)
}

// Backend opens capture streams on resolved devices.
type Backend interface {
	// Open starts capturing from dev in the given format. The returned
	// Stream delivers samples until closed. The caller owns the Stream and
	// must call Close exactly once.
	Open(ctx context.Context, dev Device, format Format) (Stream, error)
}

// Stream is an open capture stream delivering interleaved 16-bit PCM.
type Stream interface {
	// Read blocks until the next buffer of samples is available and returns
	// it. The returned slice is owned by the caller. Read returns an error
	// after Close or when the device disappears mid-capture.
	Read() ([]int16, error)

	// Close stops the stream and releases the device. Safe to call from a
	// different goroutine than Read; Read unblocks with an error.
	Close() error
}

// Player plays 16-bit PCM audio through the default output device. Playback
// is synchronous: Play returns when the buffer has been fully rendered, the
// context is cancelled, or the output device fails.
type Player interface {
	Play(ctx context.Context, samples []int16, sampleRate, channels int) error
}
