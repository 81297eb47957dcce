// Package validate inspects captured audio artifacts for usability before
// they are handed to the transcription backend.
//
// Checks accumulate into an issue set instead of short-circuiting, so one
// verdict can report several simultaneous problems (e.g. a recording that is
// both too short and clipped). The two exceptions are a missing file, which
// makes every other check meaningless, and a corrupt container, which blocks
// only the amplitude analysis — structural findings already computed are
// kept.
//
// The validator never returns an error to its caller: every failure mode is
// folded into the issue set.
package validate

import (
	"math"
	"os"
	"time"

	"github.com/mwathi/elocute/pkg/wav"
)

// IssueKind identifies one validation finding. The enumeration is closed —
// downstream policy (hard vs soft) is defined per kind by [IssueKind.Hard].
type IssueKind string

const (
	IssueFileNotFound    IssueKind = "file_not_found"
	IssueTooShort        IssueKind = "too_short"
	IssueWrongSampleRate IssueKind = "wrong_sample_rate"
	IssueNotMono         IssueKind = "not_mono"
	IssueTooQuiet        IssueKind = "too_quiet"
	IssueClipping        IssueKind = "clipping"
	IssueTooLarge        IssueKind = "too_large"
	IssueCorrupted       IssueKind = "corrupted"
)

// Hard reports whether the issue blocks downstream transcription. Hard
// issues indicate a broken capture pipeline or unusable artifact and require
// re-recording; soft issues (quiet, clipped, oversized audio) are advisory —
// the recording is degraded but still worth scoring.
func (k IssueKind) Hard() bool {
	switch k {
	case IssueFileNotFound, IssueCorrupted, IssueTooShort, IssueWrongSampleRate, IssueNotMono:
		return true
	}
	return false
}

// Verdict is the accumulated outcome of validating one artifact.
type Verdict struct {
	// Issues holds all findings in check order. Empty means the recording is
	// fully usable.
	Issues []IssueKind

	// Info is the parsed WAV format when the header was readable; zero value
	// otherwise.
	Info wav.Info
}

// IsValid reports whether no issues were found.
func (v Verdict) IsValid() bool { return len(v.Issues) == 0 }

// Has reports whether the verdict contains the given issue kind.
func (v Verdict) Has(kind IssueKind) bool {
	for _, k := range v.Issues {
		if k == kind {
			return true
		}
	}
	return false
}

// Hard returns the blocking subset of the issues, in check order.
func (v Verdict) Hard() []IssueKind {
	var out []IssueKind
	for _, k := range v.Issues {
		if k.Hard() {
			out = append(out, k)
		}
	}
	return out
}

// Soft returns the advisory subset of the issues, in check order.
func (v Verdict) Soft() []IssueKind {
	var out []IssueKind
	for _, k := range v.Issues {
		if !k.Hard() {
			out = append(out, k)
		}
	}
	return out
}

// Limits configures the validator's acceptance window.
type Limits struct {
	// MinDuration is the shortest acceptable recording.
	MinDuration time.Duration `yaml:"min_duration"`

	// RequiredSampleRate is the exact rate the transcription model expects.
	RequiredSampleRate int `yaml:"required_sample_rate"`

	// RMSFloor is the minimum root-mean-square amplitude of normalised
	// samples; below it the recording is flagged too quiet.
	RMSFloor float64 `yaml:"rms_floor"`

	// PeakCeiling is the maximum absolute normalised amplitude; above it the
	// recording is flagged as clipping.
	PeakCeiling float64 `yaml:"peak_ceiling"`

	// MaxFileSize is the largest acceptable artifact in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`
}

// DefaultLimits returns the production acceptance window: ≥1 s, 16 kHz mono,
// RMS ≥ 0.01, peak ≤ 0.95, ≤10 MiB.
func DefaultLimits() Limits {
	return Limits{
		MinDuration:        time.Second,
		RequiredSampleRate: 16000,
		RMSFloor:           0.01,
		PeakCeiling:        0.95,
		MaxFileSize:        10 << 20,
	}
}

// Validator checks recordings against a fixed set of limits. The zero value
// is not usable; construct with [New].
type Validator struct {
	limits Limits
}

// New returns a Validator using the given limits.
func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

// Validate inspects the artifact at path and returns the accumulated
// verdict. It never fails: unreadable or undecodable input is reported
// through the issue set.
func (v *Validator) Validate(path string) Verdict {
	var verdict Verdict

	stat, err := os.Stat(path)
	if err != nil {
		// Nothing else is checkable without a readable file.
		verdict.Issues = append(verdict.Issues, IssueFileNotFound)
		return verdict
	}

	if stat.Size() > v.limits.MaxFileSize {
		verdict.Issues = append(verdict.Issues, IssueTooLarge)
	}

	info, err := wav.ReadInfo(path)
	if err != nil {
		// Unparseable header: the sample offset cannot be determined, so no
		// further check can run over trustworthy data.
		verdict.Issues = append(verdict.Issues, IssueCorrupted)
		return verdict
	}
	verdict.Info = info

	if info.Duration() < v.limits.MinDuration {
		verdict.Issues = append(verdict.Issues, IssueTooShort)
	}
	if info.SampleRate != v.limits.RequiredSampleRate {
		verdict.Issues = append(verdict.Issues, IssueWrongSampleRate)
	}
	if info.Channels != 1 {
		verdict.Issues = append(verdict.Issues, IssueNotMono)
	}

	_, samples, err := wav.ReadFile(path)
	if err != nil {
		// Sample data undecodable (truncated payload, unsupported depth).
		// Structural findings above are kept; amplitude analysis is skipped
		// rather than run over a guessed fixed offset.
		verdict.Issues = append(verdict.Issues, IssueCorrupted)
		return verdict
	}

	if len(samples) > 0 {
		rms, peak := amplitude(samples)
		if rms < v.limits.RMSFloor {
			verdict.Issues = append(verdict.Issues, IssueTooQuiet)
		}
		if peak > v.limits.PeakCeiling {
			verdict.Issues = append(verdict.Issues, IssueClipping)
		}
	}

	return verdict
}

// amplitude computes the RMS and peak of samples normalised to [-1, 1].
func amplitude(samples []int16) (rms, peak float64) {
	var sumSquares float64
	for _, s := range samples {
		x := float64(s) / 32768.0
		sumSquares += x * x
		if abs := math.Abs(x); abs > peak {
			peak = abs
		}
	}
	rms = math.Sqrt(sumSquares / float64(len(samples)))
	return rms, peak
}
