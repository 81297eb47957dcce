// Package mock provides test doubles for the audio package interfaces.
//
// Use Resolver to script device enumeration results, Backend to hand out
// scripted capture streams, and Stream to feed controlled PCM buffers to the
// capture state machine without touching real hardware.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mwathi/elocute/pkg/audio"
)

// ErrStreamClosed is returned by Stream.Read after Close.
var ErrStreamClosed = errors.New("mock: stream closed")

// Resolver is a mock implementation of audio.Resolver.
type Resolver struct {
	mu sync.Mutex

	// DeviceList is returned by Devices.
	DeviceList []audio.Device

	// ResolveErr, if non-nil, is returned by Resolve.
	ResolveErr error

	// ResolveCalls records the name argument of every Resolve call.
	ResolveCalls []string
}

// Devices returns DeviceList.
func (r *Resolver) Devices(_ context.Context) ([]audio.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.DeviceList, nil
}

// Resolve records the call and returns the first matching device from
// DeviceList (any device when name is empty), or ResolveErr when set.
func (r *Resolver) Resolve(_ context.Context, name string) (audio.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResolveCalls = append(r.ResolveCalls, name)
	if r.ResolveErr != nil {
		return audio.Device{}, r.ResolveErr
	}
	for _, d := range r.DeviceList {
		if name == "" || d.Name == name {
			return d, nil
		}
	}
	return audio.Device{}, errors.New("mock: device not found")
}

// Calls returns a copy of the recorded Resolve arguments. Thread-safe.
func (r *Resolver) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ResolveCalls))
	copy(out, r.ResolveCalls)
	return out
}

// Compile-time assertion that Resolver implements audio.Resolver.
var _ audio.Resolver = (*Resolver)(nil)

// OpenCall records a single invocation of Backend.Open.
type OpenCall struct {
	Device audio.Device
	Format audio.Format
}

// Backend is a mock implementation of audio.Backend.
type Backend struct {
	mu sync.Mutex

	// Stream is returned by Open. If nil, Open returns a new empty Stream.
	Stream audio.Stream

	// OpenErr, if non-nil, is returned by Open.
	OpenErr error

	// OpenCalls records every call to Open.
	OpenCalls []OpenCall
}

// Open records the call and returns Stream, OpenErr.
func (b *Backend) Open(_ context.Context, dev audio.Device, format audio.Format) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.OpenCalls = append(b.OpenCalls, OpenCall{Device: dev, Format: format})
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	if b.Stream != nil {
		return b.Stream, nil
	}
	return NewStream(nil, 0), nil
}

// Compile-time assertion that Backend implements audio.Backend.
var _ audio.Backend = (*Backend)(nil)

// Stream is a scripted audio.Stream. It delivers the configured chunks in
// order, optionally pacing them with a fixed interval, then blocks until
// closed — mimicking a live microphone that has gone quiet.
type Stream struct {
	chunks   [][]int16
	interval time.Duration

	mu     sync.Mutex
	next   int
	closed chan struct{}
	once   sync.Once
}

// NewStream returns a Stream that will deliver the given chunks. When
// interval is non-zero each Read waits that long before returning, letting
// tests exercise watchdog timing without a real device clock.
func NewStream(chunks [][]int16, interval time.Duration) *Stream {
	return &Stream{
		chunks:   chunks,
		interval: interval,
		closed:   make(chan struct{}),
	}
}

// Read returns the next scripted chunk. After the script is exhausted Read
// blocks until Close, then returns ErrStreamClosed.
func (s *Stream) Read() ([]int16, error) {
	if s.interval > 0 {
		select {
		case <-time.After(s.interval):
		case <-s.closed:
			return nil, ErrStreamClosed
		}
	} else {
		select {
		case <-s.closed:
			return nil, ErrStreamClosed
		default:
		}
	}

	s.mu.Lock()
	if s.next < len(s.chunks) {
		chunk := s.chunks[s.next]
		s.next++
		s.mu.Unlock()
		return chunk, nil
	}
	s.mu.Unlock()

	<-s.closed
	return nil, ErrStreamClosed
}

// Close unblocks any pending Read. Idempotent.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Compile-time assertion that Stream implements audio.Stream.
var _ audio.Stream = (*Stream)(nil)

// Player is a mock implementation of audio.Player that records every call.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by Play.
	PlayErr error

	// Played records the sample count of every Play call.
	Played []int
}

// Play records the call and returns PlayErr.
func (p *Player) Play(_ context.Context, samples []int16, _, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, len(samples))
	return p.PlayErr
}

// Compile-time assertion that Player implements audio.Player.
var _ audio.Player = (*Player)(nil)
