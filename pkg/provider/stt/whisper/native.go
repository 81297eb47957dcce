// This file contains the Native transcriber backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/mwathi/elocute/pkg/provider/stt"
	"github.com/mwathi/elocute/pkg/wav"
)

// Native implements stt.Transcriber using the whisper.cpp Go bindings,
// eliminating HTTP overhead entirely. The model is loaded once at startup
// and shared across concurrent Transcribe calls; each call gets its own
// whisper context because contexts are not thread-safe.
type Native struct {
	model    whisperlib.Model
	language string
}

// Compile-time assertions.
var (
	_ stt.Transcriber = (*Native)(nil)
	_ stt.Pinger      = (*Native)(nil)
)

// NewNative loads the whisper.cpp model from modelPath. The caller must call
// Close when the transcriber is no longer needed.
func NewNative(modelPath string, opts ...Option) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Native{model: model, language: cfg.language}, nil
}

// Close releases the whisper model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Transcribe decodes the WAV file at audioPath, runs whisper.cpp inference,
// and returns the concatenated segment text.
func (n *Native) Transcribe(ctx context.Context, audioPath string) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	start := time.Now()

	info, samples, err := wav.ReadFile(audioPath)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read recording: %w", err)
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", n.language, "err", err)
	}

	if err := wctx.Process(samplesToFloat32Mono(samples, info.Channels), nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return stt.Result{
		Text:     strings.Join(parts, " "),
		Language: n.language,
		Elapsed:  time.Since(start),
	}, nil
}

// Ping reports whether the model is loaded.
func (n *Native) Ping(_ context.Context) error {
	if n.model == nil {
		return errors.New("whisper: model not loaded")
	}
	return nil
}
