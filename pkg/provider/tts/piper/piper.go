// Package piper provides a local Piper-backed tts.Synthesizer.
//
// Piper is invoked as a subprocess per synthesis request: the prompt text is
// written to its stdin and the rendered WAV is read back from a temporary
// file. Voices map to Piper ONNX model files supplied at construction time,
// so the synthesizer works fully offline.
//
// Usage:
//
//	p, err := piper.New("piper", map[string]string{
//	    "female": "/opt/voices/en_US-amy-medium.onnx",
//	    "male":   "/opt/voices/en_US-ryan-medium.onnx",
//	}, piper.WithDefaultVoice("female"))
//	clip, err := p.Synthesize(ctx, "The cat sat on the mat.", "")
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwathi/elocute/pkg/provider/tts"
	"github.com/mwathi/elocute/pkg/wav"
)

const defaultTimeout = 30 * time.Second

// Option is a functional option for configuring a Synthesizer.
type Option func(*Synthesizer)

// WithDefaultVoice sets the voice used when Synthesize receives an empty
// voice ID. Defaults to the lexicographically first configured voice.
func WithDefaultVoice(id string) Option {
	return func(s *Synthesizer) { s.defaultVoice = id }
}

// WithTimeout bounds a single Piper invocation. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

// WithWorkDir sets the directory for temporary WAV output. Defaults to the
// system temp directory.
func WithWorkDir(dir string) Option {
	return func(s *Synthesizer) { s.workDir = dir }
}

// Synthesizer implements tts.Synthesizer by shelling out to the piper
// binary. Safe for concurrent use; each call runs its own subprocess.
type Synthesizer struct {
	binary       string
	models       map[string]string
	defaultVoice string
	timeout      time.Duration
	workDir      string
}

// Compile-time assertion that Synthesizer implements tts.Synthesizer.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a Piper synthesizer. binary is the piper executable (a bare
// name is resolved via PATH); models maps voice IDs to ONNX voice model
// paths and must not be empty.
func New(binary string, models map[string]string, opts ...Option) (*Synthesizer, error) {
	if binary == "" {
		return nil, errors.New("piper: binary must not be empty")
	}
	if len(models) == 0 {
		return nil, errors.New("piper: at least one voice model is required")
	}

	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := &Synthesizer{
		binary:       binary,
		models:       models,
		defaultVoice: ids[0],
		timeout:      defaultTimeout,
		workDir:      os.TempDir(),
	}
	for _, o := range opts {
		o(s)
	}
	if _, ok := s.models[s.defaultVoice]; !ok {
		return nil, fmt.Errorf("piper: default voice %q has no model", s.defaultVoice)
	}
	return s, nil
}

// Synthesize renders text by piping it to a piper subprocess and decoding
// the WAV it writes.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) (tts.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.Clip{}, errors.New("piper: text must not be empty")
	}
	if voiceID == "" {
		voiceID = s.defaultVoice
	}
	model, ok := s.models[voiceID]
	if !ok {
		return tts.Clip{}, fmt.Errorf("piper: unknown voice %q", voiceID)
	}

	outPath := filepath.Join(s.workDir, "piper-"+uuid.NewString()+".wav")
	defer os.Remove(outPath)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.binary,
		"--model", model,
		"--output_file", outPath,
	)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return tts.Clip{}, fmt.Errorf("piper: synthesis failed: %w: %s", err, msg)
		}
		return tts.Clip{}, fmt.Errorf("piper: synthesis failed: %w", err)
	}

	info, samples, err := wav.ReadFile(outPath)
	if err != nil {
		return tts.Clip{}, fmt.Errorf("piper: decode output: %w", err)
	}
	if len(samples) == 0 {
		return tts.Clip{}, errors.New("piper: produced an empty clip")
	}

	return tts.Clip{
		Samples:    samples,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}, nil
}

// Voices returns the configured voice IDs in stable order.
func (s *Synthesizer) Voices(_ context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, 0, len(s.models))
	for id := range s.models {
		out = append(out, tts.Voice{ID: id, Name: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping verifies that the piper binary and every voice model are present.
func (s *Synthesizer) Ping(_ context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return fmt.Errorf("piper: binary not found: %w", err)
	}
	for id, model := range s.models {
		if _, err := os.Stat(model); err != nil {
			return fmt.Errorf("piper: voice %q model missing: %w", id, err)
		}
	}
	return nil
}
