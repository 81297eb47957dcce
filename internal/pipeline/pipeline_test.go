package pipeline_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/mwathi/elocute/internal/pipeline"
	"github.com/mwathi/elocute/internal/score"
	"github.com/mwathi/elocute/internal/validate"
	"github.com/mwathi/elocute/pkg/provider/stt"
	"github.com/mwathi/elocute/pkg/provider/stt/mock"
	"github.com/mwathi/elocute/pkg/wav"
)

// writeTone writes a sine-wave WAV and returns its path.
func writeTone(t *testing.T, seconds float64, sampleRate, channels int, amp float64) string {
	t.Helper()
	frames := int(seconds * float64(sampleRate))
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i/channels)/float64(sampleRate)))
	}
	path := filepath.Join(t.TempDir(), "attempt.wav")
	if err := wav.WriteFile(path, samples, sampleRate, channels); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline(tr stt.Transcriber, opts ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(validate.New(validate.DefaultLimits()), tr, opts...)
}

func TestRun_PerfectMatch(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 2, 16000, 1, 0.4)
	tr := &mock.Transcriber{Result: stt.Result{Text: "The cat sat on the mat."}}
	p := newPipeline(tr)

	res, err := p.Run(context.Background(), path, "The cat sat on the mat.")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.WER != 0 {
		t.Errorf("WER = %v, want 0", res.WER)
	}
	if res.Accuracy != 100 {
		t.Errorf("Accuracy = %d, want 100", res.Accuracy)
	}
	if res.Category != score.CategoryExcellent || res.Signal != score.SignalPositive {
		t.Errorf("classification = %v/%v, want excellent/positive", res.Category, res.Signal)
	}
	if len(res.SoftIssues) != 0 {
		t.Errorf("SoftIssues = %v, want none", res.SoftIssues)
	}
	if len(res.Words) != 6 {
		t.Errorf("word feedback entries = %d, want 6", len(res.Words))
	}
	if res.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", res.Audio.SampleRate)
	}
	if got := tr.Calls(); len(got) != 1 || got[0] != path {
		t.Errorf("Transcribe calls = %v, want exactly the recording path", got)
	}
}

func TestRun_HardIssueFailsBeforeTranscription(t *testing.T) {
	t.Parallel()

	// 44.1 kHz violates the required sample rate.
	path := writeTone(t, 2, 44100, 1, 0.4)
	tr := &mock.Transcriber{Result: stt.Result{Text: "anything"}}
	p := newPipeline(tr)

	_, err := p.Run(context.Background(), path, "the cat")
	var verr *pipeline.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Run() error = %v, want *ValidationError", err)
	}
	found := false
	for _, issue := range verr.Issues {
		if issue == validate.IssueWrongSampleRate {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want wrong_sample_rate present", verr.Issues)
	}
	if got := len(tr.Calls()); got != 0 {
		t.Errorf("transcriber called %d times after hard failure, want 0", got)
	}
}

func TestRun_SoftIssuesBecomeWarnings(t *testing.T) {
	t.Parallel()

	// Very low amplitude trips the RMS floor but must not fail the run.
	path := writeTone(t, 2, 16000, 1, 0.005)
	tr := &mock.Transcriber{Result: stt.Result{Text: "the cat sat"}}
	p := newPipeline(tr)

	res, err := p.Run(context.Background(), path, "the cat sat")
	if err != nil {
		t.Fatalf("Run() error = %v, want success with warnings", err)
	}
	found := false
	for _, issue := range res.SoftIssues {
		if issue == validate.IssueTooQuiet {
			found = true
		}
	}
	if !found {
		t.Errorf("SoftIssues = %v, want too_quiet present", res.SoftIssues)
	}
	if res.Accuracy != 100 {
		t.Errorf("Accuracy = %d, want 100 despite warnings", res.Accuracy)
	}
}

func TestRun_TranscriberFailure(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 2, 16000, 1, 0.4)
	engineErr := errors.New("whisper: server returned HTTP 500")
	p := newPipeline(&mock.Transcriber{Err: engineErr})

	_, err := p.Run(context.Background(), path, "the cat")
	var terr *pipeline.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("Run() error = %v, want *TranscriptionError", err)
	}
	if !errors.Is(err, engineErr) {
		t.Errorf("error chain does not preserve the engine failure: %v", err)
	}
}

func TestRun_EmptyTranscriptionIsValid(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 2, 16000, 1, 0.4)
	p := newPipeline(&mock.Transcriber{Result: stt.Result{Text: ""}})

	res, err := p.Run(context.Background(), path, "the cat sat")
	if err != nil {
		t.Fatalf("Run() error = %v, want success for empty transcription", err)
	}
	if res.WER != 1 {
		t.Errorf("WER = %v, want 1 for empty hypothesis", res.WER)
	}
	if res.Accuracy != 0 {
		t.Errorf("Accuracy = %d, want 0", res.Accuracy)
	}
	if res.Category != score.CategoryNeedsImprovement || res.Signal != score.SignalNegative {
		t.Errorf("classification = %v/%v, want needs_improvement/negative", res.Category, res.Signal)
	}
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 2, 16000, 1, 0.4)
	p := newPipeline(&mock.Transcriber{Result: stt.Result{Text: "the cat sat on the hat"}})

	first, err := p.Run(context.Background(), path, "The cat sat on the mat.")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), path, "The cat sat on the mat.")
	if err != nil {
		t.Fatal(err)
	}
	if first.WER != second.WER || first.Accuracy != second.Accuracy || first.Category != second.Category {
		t.Errorf("repeated runs differ: %v/%d/%v vs %v/%d/%v",
			first.WER, first.Accuracy, first.Category,
			second.WER, second.Accuracy, second.Category)
	}
}

func TestRun_CustomThresholds(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 2, 16000, 1, 0.4)
	// One substitution in six words: WER 0.1667, accuracy 83.
	p := newPipeline(
		&mock.Transcriber{Result: stt.Result{Text: "the cat sat on the hat"}},
		pipeline.WithThresholds(score.Thresholds{ExcellentMin: 90, GoodMin: 80}),
	)

	res, err := p.Run(context.Background(), path, "The cat sat on the mat.")
	if err != nil {
		t.Fatal(err)
	}
	if res.Accuracy != 83 {
		t.Errorf("Accuracy = %d, want 83", res.Accuracy)
	}
	if res.Category != score.CategoryGood {
		t.Errorf("Category = %v, want good under custom thresholds", res.Category)
	}
}
