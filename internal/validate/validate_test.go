package validate_test

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mwathi/elocute/internal/validate"
	"github.com/mwathi/elocute/pkg/wav"
)

// writeTone writes a WAV file containing a sine tone and returns its path.
// amplitude is on the normalised [0, 1] scale.
func writeTone(t *testing.T, seconds float64, sampleRate, channels int, amplitude float64) string {
	t.Helper()
	frames := int(seconds * float64(sampleRate))
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	path := filepath.Join(t.TempDir(), "take.wav")
	if err := wav.WriteFile(path, samples, sampleRate, channels); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestValidate_CleanRecording(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 2.0, 16000, 1, 0.5)

	verdict := v.Validate(path)
	if !verdict.IsValid() {
		t.Fatalf("clean recording invalid, issues: %v", verdict.Issues)
	}
	if verdict.Info.SampleRate != 16000 {
		t.Errorf("Info.SampleRate = %d, want 16000", verdict.Info.SampleRate)
	}
}

func TestValidate_FileNotFound(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	verdict := v.Validate(filepath.Join(t.TempDir(), "nope.wav"))

	want := []validate.IssueKind{validate.IssueFileNotFound}
	if !slices.Equal(verdict.Issues, want) {
		t.Errorf("Issues = %v, want exactly %v", verdict.Issues, want)
	}
	if verdict.IsValid() {
		t.Error("missing file reported valid")
	}
}

func TestValidate_TooShort(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 0.5, 16000, 1, 0.5)

	verdict := v.Validate(path)
	want := []validate.IssueKind{validate.IssueTooShort}
	if !slices.Equal(verdict.Issues, want) {
		t.Errorf("Issues = %v, want %v", verdict.Issues, want)
	}
}

func TestValidate_WrongSampleRate(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 3.0, 44100, 1, 0.5)

	verdict := v.Validate(path)
	want := []validate.IssueKind{validate.IssueWrongSampleRate}
	if !slices.Equal(verdict.Issues, want) {
		t.Errorf("Issues = %v, want %v", verdict.Issues, want)
	}
}

func TestValidate_NotMono(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 2.0, 16000, 2, 0.5)

	verdict := v.Validate(path)
	if !verdict.Has(validate.IssueNotMono) {
		t.Errorf("Issues = %v, want to contain %v", verdict.Issues, validate.IssueNotMono)
	}
}

func TestValidate_TooQuiet(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 2.0, 16000, 1, 0.005)

	verdict := v.Validate(path)
	if !verdict.Has(validate.IssueTooQuiet) {
		t.Errorf("Issues = %v, want to contain %v", verdict.Issues, validate.IssueTooQuiet)
	}
}

func TestValidate_Clipping(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 2.0, 16000, 1, 1.0)

	verdict := v.Validate(path)
	if !verdict.Has(validate.IssueClipping) {
		t.Errorf("Issues = %v, want to contain %v", verdict.Issues, validate.IssueClipping)
	}
}

func TestValidate_IssuesAccumulate(t *testing.T) {
	t.Parallel()

	// Half a second of near-silence at the wrong rate: three findings at once.
	v := validate.New(validate.DefaultLimits())
	path := writeTone(t, 0.5, 8000, 1, 0.001)

	verdict := v.Validate(path)
	for _, want := range []validate.IssueKind{
		validate.IssueTooShort,
		validate.IssueWrongSampleRate,
		validate.IssueTooQuiet,
	} {
		if !verdict.Has(want) {
			t.Errorf("Issues = %v, want to contain %v", verdict.Issues, want)
		}
	}
}

func TestValidate_Corrupted(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.DefaultLimits())
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all, just text"), 0o644); err != nil {
		t.Fatal(err)
	}

	verdict := v.Validate(path)
	want := []validate.IssueKind{validate.IssueCorrupted}
	if !slices.Equal(verdict.Issues, want) {
		t.Errorf("Issues = %v, want %v", verdict.Issues, want)
	}
}

func TestValidate_CorruptedKeepsStructuralFindings(t *testing.T) {
	t.Parallel()

	// Valid header at the wrong sample rate, but truncated sample data: the
	// structural finding must survive alongside the corruption flag.
	v := validate.New(validate.DefaultLimits())
	src := writeTone(t, 3.0, 44100, 1, 0.5)
	raw, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "truncated.wav")
	if err := os.WriteFile(path, raw[:len(raw)-1001], 0o644); err != nil {
		t.Fatal(err)
	}

	verdict := v.Validate(path)
	if !verdict.Has(validate.IssueCorrupted) {
		t.Errorf("Issues = %v, want to contain corrupted", verdict.Issues)
	}
	if !verdict.Has(validate.IssueWrongSampleRate) {
		t.Errorf("Issues = %v, want structural wrong_sample_rate kept", verdict.Issues)
	}
}

func TestValidate_TooLarge(t *testing.T) {
	t.Parallel()

	limits := validate.DefaultLimits()
	limits.MaxFileSize = 1024 // force the path without writing 10 MiB
	v := validate.New(limits)
	path := writeTone(t, 2.0, 16000, 1, 0.5)

	verdict := v.Validate(path)
	if !verdict.Has(validate.IssueTooLarge) {
		t.Errorf("Issues = %v, want to contain too_large", verdict.Issues)
	}
}

func TestIssueKind_HardSoftPartition(t *testing.T) {
	t.Parallel()

	hard := []validate.IssueKind{
		validate.IssueFileNotFound,
		validate.IssueCorrupted,
		validate.IssueTooShort,
		validate.IssueWrongSampleRate,
		validate.IssueNotMono,
	}
	soft := []validate.IssueKind{
		validate.IssueTooQuiet,
		validate.IssueClipping,
		validate.IssueTooLarge,
	}
	for _, k := range hard {
		if !k.Hard() {
			t.Errorf("%v should be hard", k)
		}
	}
	for _, k := range soft {
		if k.Hard() {
			t.Errorf("%v should be soft", k)
		}
	}

	verdict := validate.Verdict{Issues: []validate.IssueKind{
		validate.IssueTooShort, validate.IssueClipping, validate.IssueTooQuiet,
	}}
	if got := verdict.Hard(); !slices.Equal(got, []validate.IssueKind{validate.IssueTooShort}) {
		t.Errorf("Hard() = %v, want [too_short]", got)
	}
	if got := verdict.Soft(); !slices.Equal(got, []validate.IssueKind{validate.IssueClipping, validate.IssueTooQuiet}) {
		t.Errorf("Soft() = %v, want [clipping too_quiet]", got)
	}
}
