// Package pipeline orchestrates the scoring of one finished practice
// attempt: validate the recording, transcribe it, compare the transcription
// against the reference sentence, and classify the result.
//
// The stages run strictly in order and the pipeline performs no retries —
// a failed stage surfaces as a typed error and the caller decides whether to
// re-record. Hard validation issues fail the run before any transcription
// happens; soft issues ride along on the result as warnings. An empty
// transcription is not a failure: it scores like any other hypothesis and
// lands in the lowest category.
//
// Given the same recording and reference, a run is deterministic.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mwathi/elocute/internal/observe"
	"github.com/mwathi/elocute/internal/score"
	"github.com/mwathi/elocute/internal/validate"
	"github.com/mwathi/elocute/pkg/provider/stt"
	"github.com/mwathi/elocute/pkg/wav"
)

// ValidationError reports that a recording failed validation with at least
// one hard issue. Issues carries the full verdict, soft findings included.
type ValidationError struct {
	Issues []validate.IssueKind
}

func (e *ValidationError) Error() string {
	kinds := make([]string, len(e.Issues))
	for i, k := range e.Issues {
		kinds[i] = string(k)
	}
	return "pipeline: recording validation failed: " + strings.Join(kinds, ", ")
}

// TranscriptionError reports that the speech-to-text engine failed. The
// engine's own message is preserved verbatim via Unwrap.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("pipeline: transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Result is the outcome of one scored attempt.
type Result struct {
	// Reference is the sentence the speaker was asked to read.
	Reference string

	// Transcription is what the engine heard. May be empty.
	Transcription string

	// WER is the word error rate, rounded to four decimals.
	WER float64

	// Accuracy is the percentage score derived from WER, clamped to 0–100.
	Accuracy int

	// Category grades the attempt; Signal is its UI-agnostic rendering.
	Category score.Category
	Signal   score.Signal

	// Words carries per-word feedback aligned to the reference sentence.
	Words []score.WordFeedback

	// SoftIssues lists non-fatal validation findings on the recording.
	SoftIssues []validate.IssueKind

	// Audio describes the validated recording.
	Audio wav.Info

	// STTElapsed is the transcription latency; Elapsed the full run.
	STTElapsed time.Duration
	Elapsed    time.Duration
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithMetrics attaches observability instruments. Without it the pipeline
// runs unobserved.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithThresholds overrides the accuracy classification thresholds.
func WithThresholds(t score.Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = t }
}

// Pipeline scores practice attempts. Safe for concurrent use.
type Pipeline struct {
	validator   *validate.Validator
	transcriber stt.Transcriber
	thresholds  score.Thresholds
	metrics     *observe.Metrics
}

// New creates a Pipeline with the default classification thresholds.
func New(validator *validate.Validator, transcriber stt.Transcriber, opts ...Option) *Pipeline {
	p := &Pipeline{
		validator:   validator,
		transcriber: transcriber,
		thresholds:  score.DefaultThresholds(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run scores the recording at audioPath against the reference sentence.
//
// It returns *ValidationError when the recording has hard validation issues
// and *TranscriptionError when the speech-to-text engine fails. Any other
// outcome — including an empty transcription — is a successful run.
func (p *Pipeline) Run(ctx context.Context, audioPath, reference string) (*Result, error) {
	start := time.Now()
	log := observe.Logger(ctx).With("recording", audioPath)

	// Stage 1: validation.
	verdict := p.validator.Validate(audioPath)
	if p.metrics != nil {
		for _, issue := range verdict.Issues {
			p.metrics.RecordValidationIssue(ctx, string(issue), issue.Hard())
		}
	}
	if hard := verdict.Hard(); len(hard) > 0 {
		if p.metrics != nil {
			p.metrics.RecordPipelineRun(ctx, "validation_failed", "")
		}
		log.Warn("recording rejected", "issues", verdict.Issues)
		return nil, &ValidationError{Issues: verdict.Issues}
	}

	// Stage 2: transcription.
	trans, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordProviderError(ctx, "stt", "transcribe")
			p.metrics.RecordPipelineRun(ctx, "transcription_failed", "")
		}
		log.Error("transcription failed", "err", err)
		return nil, &TranscriptionError{Err: err}
	}

	// Stage 3: scoring and classification.
	wer := score.WordErrorRate(reference, trans.Text)
	graded := score.Classify(wer, p.thresholds)

	res := &Result{
		Reference:     reference,
		Transcription: trans.Text,
		WER:           graded.WER,
		Accuracy:      graded.Accuracy,
		Category:      graded.Category,
		Signal:        graded.Signal,
		Words:         score.Feedback(reference, trans.Text),
		SoftIssues:    verdict.Soft(),
		Audio:         verdict.Info,
		STTElapsed:    trans.Elapsed,
		Elapsed:       time.Since(start),
	}

	if p.metrics != nil {
		p.metrics.WER.Record(ctx, res.WER)
		p.metrics.STTDuration.Record(ctx, trans.Elapsed.Seconds())
		p.metrics.PipelineDuration.Record(ctx, res.Elapsed.Seconds())
		p.metrics.RecordPipelineRun(ctx, "ok", string(res.Category))
	}
	log.Info("attempt scored",
		"wer", res.WER,
		"accuracy", res.Accuracy,
		"category", string(res.Category),
		"soft_issues", len(res.SoftIssues),
	)
	return res, nil
}
