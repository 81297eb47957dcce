package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mwathi/elocute/pkg/wav"
)

// Cache wraps a Synthesizer with a content-addressed WAV cache on disk.
// Prompt sentences repeat heavily across practice sessions, and synthesis is
// the slowest step of prompt playback, so hits skip the backend entirely.
//
// The cache key is the SHA-256 of the voice ID and the prompt text; a cached
// entry is a plain WAV file named after the key. Cache corruption degrades to
// a miss, never to an error.
type Cache struct {
	dir   string
	inner Synthesizer
}

// Compile-time assertion that Cache implements Synthesizer.
var _ Synthesizer = (*Cache)(nil)

// NewCache returns a caching wrapper around inner, storing entries under dir.
// The directory is created on first use.
func NewCache(dir string, inner Synthesizer) *Cache {
	return &Cache{dir: dir, inner: inner}
}

// Synthesize returns the cached clip when present, otherwise delegates to the
// wrapped synthesizer and stores the result.
func (c *Cache) Synthesize(ctx context.Context, text, voiceID string) (Clip, error) {
	path := c.entryPath(text, voiceID)

	if info, samples, err := wav.ReadFile(path); err == nil && len(samples) > 0 {
		return Clip{Samples: samples, SampleRate: info.SampleRate, Channels: info.Channels}, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("tts cache entry unreadable, re-synthesizing", "path", path, "err", err)
		_ = os.Remove(path)
	}

	clip, err := c.inner.Synthesize(ctx, text, voiceID)
	if err != nil {
		return Clip{}, err
	}

	if err := wav.WriteFile(path, clip.Samples, clip.SampleRate, clip.Channels); err != nil {
		// A failed cache write must not fail the synthesis.
		slog.Warn("tts cache write failed", "path", path, "err", err)
	}
	return clip, nil
}

// Voices delegates to the wrapped synthesizer.
func (c *Cache) Voices(ctx context.Context) ([]Voice, error) {
	return c.inner.Voices(ctx)
}

// Ping delegates to the wrapped synthesizer when it supports pinging.
func (c *Cache) Ping(ctx context.Context) error {
	p, ok := c.inner.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

func (c *Cache) entryPath(text, voiceID string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s", voiceID, text))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".wav")
}
