// Package capture drives microphone acquisition for one practice attempt.
//
// A [Recorder] owns at most one live [Session] at a time. Each session walks
// a fixed state machine:
//
//	Idle → Armed → Recording → Stopping → Finalizing → {Completed, Aborted}
//
// Armed re-resolves the input device through the configured [audio.Resolver]
// on every session — device handles are never cached across sessions because
// hardware may be hot-plugged between attempts. Recording pulls PCM frames
// from the backend stream on a dedicated goroutine so the caller is never
// blocked for the capture duration; a watchdog forces the stop transition at
// the session's maximum duration. Finalizing writes the canonical WAV
// artifact and verifies it before the session completes.
//
// Failures are reported as structured results on the session's Done channel,
// never as panics or raw errors to the caller, and the recorder performs no
// retries — retry policy belongs to the caller.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwathi/elocute/internal/observe"
	"github.com/mwathi/elocute/pkg/audio"
	"github.com/mwathi/elocute/pkg/wav"
)

// State is one node of the capture state machine.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateStopping
	StateFinalizing
	StateCompleted
	StateAborted
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Reason explains why a session aborted.
type Reason string

const (
	// ReasonNone is set on completed sessions.
	ReasonNone Reason = ""

	// ReasonNoDeviceFound means device resolution or stream opening failed.
	ReasonNoDeviceFound Reason = "no_device_found"

	// ReasonEmptyCapture means the session ended without a single frame of
	// audio, so there is no artifact to finalize.
	ReasonEmptyCapture Reason = "empty_capture"

	// ReasonWriteFailed means the artifact could not be written or failed
	// the post-write plausibility check.
	ReasonWriteFailed Reason = "write_failed"
)

// Result is the terminal outcome of one capture session.
type Result struct {
	// State is StateCompleted or StateAborted.
	State State

	// Reason is set when State is StateAborted.
	Reason Reason

	// Err carries the underlying failure for aborted sessions, when any.
	Err error

	// ArtifactPath is the written WAV file for completed sessions.
	ArtifactPath string

	// Duration is the captured audio length, computed from the sample count
	// (not wall clock), for completed sessions.
	Duration time.Duration

	// FileSize is the artifact size in bytes for completed sessions.
	FileSize int64
}

// Request describes one recording attempt.
type Request struct {
	// OutputPath is where the WAV artifact is written. Owned exclusively by
	// this session until the result is delivered.
	OutputPath string

	// MaxDuration is the hard recording cut-off enforced by the watchdog.
	MaxDuration time.Duration

	// DeviceName selects the input device by name; empty means the host
	// default.
	DeviceName string

	// OnLevel, when non-nil, receives the current input level (0–1) at a
	// bounded rate while recording. Called on the capture goroutine — the
	// observer must hand off to its own context and never block.
	OnLevel func(level float64)

	// OnState, when non-nil, receives every state transition of the
	// session, in order. Same calling conventions as OnLevel.
	OnState func(state State)
}

// ErrSessionActive is returned by Start while a previous session is still
// between Armed and Finalizing. The input device is exclusively owned by the
// running session; callers must wait for its result before starting anew.
var ErrSessionActive = errors.New("capture: a session is already active")

// Config tunes the recorder. The zero value is usable; unset fields take the
// defaults below.
type Config struct {
	// Format is the capture PCM layout. Default: 16 kHz mono, 512 frames
	// per buffer — the layout the downstream transcription model expects.
	Format audio.Format

	// PollInterval bounds how stale the watchdog and stop-signal checks may
	// be. Default 100 ms: coarse enough to be free, fine enough that a
	// multi-second speech recording never overshoots noticeably.
	PollInterval time.Duration

	// LevelInterval bounds the rate of OnLevel notifications. Default 100 ms.
	LevelInterval time.Duration

	// Metrics, when non-nil, receives capture telemetry: the live-session
	// gauge, per-outcome session counts, and the duration histogram of
	// completed sessions.
	Metrics *observe.Metrics
}

func (c Config) withDefaults() Config {
	if c.Format.SampleRate == 0 {
		c.Format.SampleRate = 16000
	}
	if c.Format.Channels == 0 {
		c.Format.Channels = 1
	}
	if c.Format.FramesPerBuffer == 0 {
		c.Format.FramesPerBuffer = 512
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.LevelInterval == 0 {
		c.LevelInterval = 100 * time.Millisecond
	}
	return c
}

// Recorder creates and supervises capture sessions. Safe for concurrent use;
// only one session may be live at a time.
type Recorder struct {
	resolver audio.Resolver
	backend  audio.Backend
	cfg      Config

	mu     sync.Mutex
	active *Session
}

// New returns a Recorder that resolves devices through resolver and captures
// through backend.
func New(resolver audio.Resolver, backend audio.Backend, cfg Config) *Recorder {
	return &Recorder{
		resolver: resolver,
		backend:  backend,
		cfg:      cfg.withDefaults(),
	}
}

// Start begins a fresh capture session. It returns ErrSessionActive while a
// previous session has not reached a terminal state, and validates the
// request before arming. The returned session is already running; consume
// its Done channel for the result.
func (r *Recorder) Start(ctx context.Context, req Request) (*Session, error) {
	if req.OutputPath == "" {
		return nil, errors.New("capture: output path must not be empty")
	}
	if req.MaxDuration <= 0 {
		return nil, errors.New("capture: max duration must be positive")
	}

	r.mu.Lock()
	if r.active != nil && !r.active.State().Terminal() {
		r.mu.Unlock()
		return nil, ErrSessionActive
	}

	s := &Session{
		id:      uuid.NewString(),
		req:     req,
		cfg:     r.cfg,
		state:   StateIdle,
		stopped: make(chan struct{}),
		done:    make(chan Result, 1),
	}
	r.active = s
	r.mu.Unlock()

	go s.run(ctx, r.resolver, r.backend)
	return s, nil
}

// Session is one recording attempt. Created by [Recorder.Start]; destroyed
// (no state reused) when its result is delivered.
type Session struct {
	id  string
	req Request
	cfg Config

	mu    sync.Mutex
	state State

	stopOnce sync.Once
	stopped  chan struct{}

	done chan Result
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns the channel on which the terminal result is delivered
// exactly once.
func (s *Session) Done() <-chan Result { return s.done }

// Stop requests a graceful stop. It is idempotent and safe to call from any
// goroutine at any time: the first call sets the shared stop signal, every
// later call is a no-op. The capture loop observes the signal within the
// configured poll interval.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	if s.req.OnState != nil {
		s.req.OnState(next)
	}
}

type readResult struct {
	samples []int16
	err     error
}

// run executes the full session lifecycle on its own goroutine.
func (s *Session) run(ctx context.Context, resolver audio.Resolver, backend audio.Backend) {
	if m := s.cfg.Metrics; m != nil {
		m.ActiveSessions.Add(ctx, 1)
	}

	// ── Armed: re-probe hardware for this session ─────────────────────────
	s.setState(StateArmed)

	dev, err := resolver.Resolve(ctx, s.req.DeviceName)
	if err != nil {
		s.finish(ctx, Result{State: StateAborted, Reason: ReasonNoDeviceFound, Err: err})
		return
	}

	stream, err := backend.Open(ctx, dev, s.cfg.Format)
	if err != nil {
		s.finish(ctx, Result{State: StateAborted, Reason: ReasonNoDeviceFound, Err: err})
		return
	}

	slog.Debug("capture armed", "session", s.id, "device", dev.Name)

	// ── Recording ─────────────────────────────────────────────────────────
	s.setState(StateRecording)

	readCh := make(chan readResult, 8)
	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		for {
			samples, err := stream.Read()
			select {
			case readCh <- readResult{samples: samples, err: err}:
			case <-s.stopped:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		buffer    []int16
		readErr   error
		start     = time.Now()
		lastLevel time.Time
	)

	watchdog := time.NewTicker(s.cfg.PollInterval)
	defer watchdog.Stop()

recording:
	for {
		select {
		case <-s.stopped:
			break recording

		case <-ctx.Done():
			s.Stop()
			break recording

		case <-watchdog.C:
			if time.Since(start) >= s.req.MaxDuration {
				slog.Debug("capture watchdog fired", "session", s.id, "elapsed", time.Since(start))
				break recording
			}

		case rr := <-readCh:
			if rr.err != nil {
				readErr = rr.err
				break recording
			}
			buffer = append(buffer, rr.samples...)
			if s.req.OnLevel != nil && time.Since(lastLevel) >= s.cfg.LevelInterval {
				lastLevel = time.Now()
				s.req.OnLevel(chunkLevel(rr.samples))
			}
		}
	}

	// ── Stopping: release the device, flush the reader ────────────────────
	s.setState(StateStopping)
	s.Stop() // ensure the shared signal is set for the reader goroutine

	if err := stream.Close(); err != nil {
		slog.Warn("capture stream close failed", "session", s.id, "err", err)
	}
	readerWG.Wait()

	// Drain frames the reader delivered while we were leaving the loop.
drain:
	for {
		select {
		case rr := <-readCh:
			if rr.err == nil {
				buffer = append(buffer, rr.samples...)
			}
		default:
			break drain
		}
	}

	if readErr != nil {
		slog.Warn("capture stream read failed mid-session", "session", s.id, "err", readErr)
	}

	// ── Finalizing: write and verify the artifact ─────────────────────────
	s.setState(StateFinalizing)

	if len(buffer) == 0 {
		s.finish(ctx, Result{State: StateAborted, Reason: ReasonEmptyCapture, Err: readErr})
		return
	}

	if err := wav.WriteFile(s.req.OutputPath, buffer, s.cfg.Format.SampleRate, s.cfg.Format.Channels); err != nil {
		s.finish(ctx, Result{State: StateAborted, Reason: ReasonWriteFailed, Err: err})
		return
	}

	stat, err := os.Stat(s.req.OutputPath)
	if err != nil || stat.Size() <= wav.HeaderSize {
		s.finish(ctx, Result{
			State:  StateAborted,
			Reason: ReasonWriteFailed,
			Err:    fmt.Errorf("capture: artifact %q implausibly small: %w", s.req.OutputPath, err),
		})
		return
	}

	frames := len(buffer) / s.cfg.Format.Channels
	duration := time.Duration(float64(frames) / float64(s.cfg.Format.SampleRate) * float64(time.Second))

	s.finish(ctx, Result{
		State:        StateCompleted,
		ArtifactPath: s.req.OutputPath,
		Duration:     duration,
		FileSize:     stat.Size(),
	})
}

// finish records the terminal state, emits session telemetry, and delivers
// the result exactly once.
func (s *Session) finish(ctx context.Context, res Result) {
	s.setState(res.State)
	if m := s.cfg.Metrics; m != nil {
		m.ActiveSessions.Add(ctx, -1)
		m.RecordCaptureSession(ctx, res.State.String(), string(res.Reason))
		if res.State == StateCompleted {
			m.CaptureDuration.Record(ctx, res.Duration.Seconds())
		}
	}
	slog.Info("capture session finished",
		"session", s.id,
		"state", res.State.String(),
		"reason", string(res.Reason),
		"duration", res.Duration,
	)
	s.done <- res
	close(s.done)
}

// chunkLevel returns the RMS level of a chunk scaled to 0–1. The ×5 gain
// matches a typical speech level to a full meter, clamped at 1.
func chunkLevel(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		x := float64(v) / 32768.0
		sum += x * x
	}
	level := math.Sqrt(sum/float64(len(samples))) * 5
	return math.Min(1, level)
}
