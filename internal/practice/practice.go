// Package practice runs complete practice rounds: speak the target sentence,
// record the learner's attempt, score it, and persist the outcome.
//
// A round is strictly sequential. Sentence playback is best-effort (a broken
// speaker must not block practising), recording and scoring are not. Guests
// practise without persistence; their outcomes are returned but not stored.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mwathi/elocute/internal/capture"
	"github.com/mwathi/elocute/internal/observe"
	"github.com/mwathi/elocute/internal/pipeline"
	"github.com/mwathi/elocute/internal/store"
	"github.com/mwathi/elocute/pkg/audio"
	"github.com/mwathi/elocute/pkg/provider/tts"
)

// prefetchConcurrency bounds parallel synthesis during warm-up. Piper is
// CPU-bound, so more workers than cores just thrash.
const prefetchConcurrency = 4

// Outcome is the result of one completed practice round.
type Outcome struct {
	// AttemptID is the stored attempt row, or zero for guests.
	AttemptID int64

	// Score is the pipeline verdict for the recording.
	Score *pipeline.Result

	// Recording is the capture result the score was derived from.
	Recording capture.Result
}

// Round describes one practice request.
type Round struct {
	// UserID owns the stored attempt. Zero means guest: score, don't store.
	UserID int64

	// Sentence is the target to read aloud.
	Sentence store.Sentence

	// SpeakFirst plays the sentence through the speakers before recording,
	// when a synthesizer and player are configured.
	SpeakFirst bool

	// OnSession receives the live capture session so the caller can stop
	// the recording early. May be nil.
	OnSession func(*capture.Session)

	// OnLevel and OnState are forwarded to the capture session. May be nil.
	OnLevel func(float64)
	OnState func(capture.State)
}

// Option configures a [Runner].
type Option func(*Runner)

// WithSpeech enables sentence playback before recording.
func WithSpeech(synth tts.Synthesizer, player audio.Player, voiceID string) Option {
	return func(r *Runner) {
		r.synth = synth
		r.player = player
		r.voiceID = voiceID
	}
}

// WithStore enables persistence of outcomes for signed-in users.
func WithStore(st *store.Store) Option {
	return func(r *Runner) { r.store = st }
}

// WithDevice selects the input device for recording. Empty means the host
// default.
func WithDevice(name string) Option {
	return func(r *Runner) { r.device = name }
}

// WithMaxDuration overrides the recording cut-off. Default 30 s.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.maxDuration = d
		}
	}
}

// Runner orchestrates practice rounds. Safe for concurrent use, though the
// recorder serialises recording itself: a second round while one is recording
// fails with [capture.ErrSessionActive].
type Runner struct {
	recorder *capture.Recorder
	pipe     *pipeline.Pipeline

	recordingsDir string
	device        string
	maxDuration   time.Duration

	synth   tts.Synthesizer
	player  audio.Player
	voiceID string

	store *store.Store
}

// New creates a Runner writing recordings under recordingsDir.
func New(recorder *capture.Recorder, pipe *pipeline.Pipeline, recordingsDir string, opts ...Option) *Runner {
	r := &Runner{
		recorder:      recorder,
		pipe:          pipe,
		recordingsDir: recordingsDir,
		maxDuration:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one practice round and returns its outcome.
//
// Playback failures are logged and skipped. An aborted recording or a
// scoring failure ends the round with an error; the recording artifact of a
// scored round is kept on disk either way so it can be replayed later.
func (r *Runner) Run(ctx context.Context, round Round) (*Outcome, error) {
	if round.Sentence.Text == "" {
		return nil, errors.New("practice: sentence text is empty")
	}
	log := observe.Logger(ctx).With("sentence_id", round.Sentence.ID)

	if round.SpeakFirst {
		r.speak(ctx, round.Sentence.Text, log)
	}

	if err := os.MkdirAll(r.recordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("practice: create recordings dir: %w", err)
	}
	outPath := filepath.Join(r.recordingsDir, uuid.NewString()+".wav")

	session, err := r.recorder.Start(ctx, capture.Request{
		OutputPath:  outPath,
		MaxDuration: r.maxDuration,
		DeviceName:  r.device,
		OnLevel:     round.OnLevel,
		OnState:     round.OnState,
	})
	if err != nil {
		return nil, fmt.Errorf("practice: start recording: %w", err)
	}
	if round.OnSession != nil {
		round.OnSession(session)
	}

	rec := <-session.Done()
	if rec.State != capture.StateCompleted {
		if rec.Err != nil {
			return nil, fmt.Errorf("practice: recording aborted (%s): %w", rec.Reason, rec.Err)
		}
		return nil, fmt.Errorf("practice: recording aborted (%s)", rec.Reason)
	}

	res, err := r.pipe.Run(ctx, rec.ArtifactPath, round.Sentence.Text)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Score: res, Recording: rec}
	if r.store != nil && round.UserID > 0 {
		id, err := r.store.SaveAttempt(ctx, store.Attempt{
			UserID:        round.UserID,
			SentenceID:    round.Sentence.ID,
			AudioPath:     rec.ArtifactPath,
			Transcription: res.Transcription,
			TargetText:    round.Sentence.Text,
			WER:           res.WER,
			Accuracy:      res.Accuracy,
			Category:      res.Category,
			Duration:      rec.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("practice: save attempt: %w", err)
		}
		out.AttemptID = id
	}

	log.Info("practice round complete",
		"accuracy", res.Accuracy,
		"category", res.Category,
		"wer", res.WER,
		"attempt_id", out.AttemptID,
	)
	return out, nil
}

// speak plays the sentence through the configured voice, best-effort.
func (r *Runner) speak(ctx context.Context, text string, log *slog.Logger) {
	if r.synth == nil || r.player == nil {
		return
	}
	clip, err := r.synth.Synthesize(ctx, text, r.voiceID)
	if err != nil {
		log.Warn("sentence playback skipped: synthesis failed", "err", err)
		return
	}
	if err := r.player.Play(ctx, clip.Samples, clip.SampleRate, clip.Channels); err != nil {
		log.Warn("sentence playback failed", "err", err)
	}
}

// Prefetch synthesizes every sentence once so later rounds hit the on-disk
// clip cache instead of paying synthesis latency mid-session. Errors on
// individual sentences are collected, not fatal for the rest.
func (r *Runner) Prefetch(ctx context.Context, sentences []store.Sentence) error {
	if r.synth == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)

	var mu sync.Mutex
	var errs []error
	for _, s := range sentences {
		if s.Text == "" {
			continue
		}
		g.Go(func() error {
			if _, err := r.synth.Synthesize(ctx, s.Text, r.voiceID); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("sentence %d: %w", s.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
