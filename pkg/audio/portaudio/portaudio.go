// Package portaudio implements the [audio.Resolver], [audio.Backend], and
// [audio.Player] interfaces on top of the PortAudio host API via the
// gordonklaus/portaudio bindings.
//
// PortAudio keeps process-wide state, so this package reference-counts
// Initialize/Terminate: construct a [Host] once, share it between the
// resolver, backend, and player, and Close it when the process shuts down.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/mwathi/elocute/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Resolver = (*Host)(nil)
	_ audio.Backend  = (*Host)(nil)
	_ audio.Player   = (*Host)(nil)
)

// ErrNoInputDevice is returned by Resolve when no usable input device exists.
var ErrNoInputDevice = errors.New("portaudio: no input device available")

// Host wraps an initialised PortAudio runtime. All methods are safe for
// concurrent use, but PortAudio allows only one open stream per device —
// higher layers enforce the single-active-capture rule.
type Host struct {
	mu     sync.Mutex
	closed bool
}

// NewHost initialises PortAudio and returns a Host. The caller must call
// Close when the host is no longer needed.
func NewHost() (*Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &Host{}, nil
}

// Close terminates the PortAudio runtime. Calling it more than once is safe.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("portaudio: terminate: %w", err)
	}
	return nil
}

// Devices lists the currently available input devices. The hardware is
// probed on every call; results are never cached.
func (h *Host) Devices(ctx context.Context) ([]audio.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: enumerate devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var out []audio.Device
	for i, dev := range devs {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, audio.Device{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev.Name == defaultName,
		})
	}
	return out, nil
}

// Resolve returns the input device matching name, or the host default when
// name is empty. A named device that is not present is an error — falling
// back silently would record from the wrong microphone.
func (h *Host) Resolve(ctx context.Context, name string) (audio.Device, error) {
	devices, err := h.Devices(ctx)
	if err != nil {
		return audio.Device{}, err
	}
	if len(devices) == 0 {
		return audio.Device{}, ErrNoInputDevice
	}

	if name == "" {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		return devices[0], nil
	}

	for _, d := range devices {
		if d.Name == name {
			return d, nil
		}
	}
	return audio.Device{}, fmt.Errorf("portaudio: input device %q not found: %w", name, ErrNoInputDevice)
}

// Open starts capturing from dev and returns the live stream.
func (h *Host) Open(ctx context.Context, dev audio.Device, format audio.Format) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Re-fetch the device info by index: portaudio stream parameters need
	// the host's own DeviceInfo pointer, and the index was validated by the
	// enumeration that produced dev moments ago.
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: enumerate devices: %w", err)
	}
	if dev.ID < 0 || dev.ID >= len(devs) {
		return nil, fmt.Errorf("portaudio: device %q (index %d) disappeared: %w", dev.Name, dev.ID, ErrNoInputDevice)
	}
	info := devs[dev.ID]
	if info.Name != dev.Name || info.MaxInputChannels < format.Channels {
		return nil, fmt.Errorf("portaudio: device %q changed identity since resolution: %w", dev.Name, ErrNoInputDevice)
	}

	buffer := make([]int16, format.FramesPerBuffer*format.Channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: format.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: format.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start stream on %q: %w", dev.Name, err)
	}

	return &captureStream{stream: stream, buffer: buffer}, nil
}

// captureStream adapts a portaudio input stream to [audio.Stream].
type captureStream struct {
	stream *portaudio.Stream
	buffer []int16

	mu     sync.Mutex
	closed bool
}

// Read blocks until the next buffer is filled and returns a copy of it.
func (s *captureStream) Read() ([]int16, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("portaudio: stream closed")
	}
	s.mu.Unlock()

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("portaudio: read: %w", err)
	}

	out := make([]int16, len(s.buffer))
	copy(out, s.buffer)
	return out, nil
}

// Close stops the stream and releases the device. Idempotent.
func (s *captureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	// Abort rather than Stop: Stop waits for pending buffers, which can
	// deadlock against a concurrent blocking Read.
	if err := s.stream.Abort(); err != nil {
		s.stream.Close()
		return fmt.Errorf("portaudio: abort stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close stream: %w", err)
	}
	return nil
}

// Play renders samples through the default output device. It returns when
// the whole buffer has been written, ctx is cancelled, or the device fails.
func (h *Host) Play(ctx context.Context, samples []int16, sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("portaudio: invalid playback format (rate=%d channels=%d)", sampleRate, channels)
	}

	const framesPerBuffer = 1024
	buffer := make([]int16, framesPerBuffer*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, buffer)
	if err != nil {
		return fmt.Errorf("portaudio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[pos:])
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0 // pad the final partial buffer with silence
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write output: %w", err)
		}
	}
	return nil
}
